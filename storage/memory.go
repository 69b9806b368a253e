/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"context"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/cache"
)

// MemoryConfiguration configures the in-process store.
type MemoryConfiguration struct {
	// TTL expires documents not saved for this long. 0 keeps them forever.
	TTL time.Duration
	// GCInterval is how often expired documents are collected.
	GCInterval time.Duration
}

// MemoryStore keeps documents in a MemoryCache. Documents do not survive a restart.
type MemoryStore struct {
	cache *cache.MemoryCache
	ttl   time.Duration
}

var _ types.ValueStore = (*MemoryStore)(nil)

func NewMemoryStore(config MemoryConfiguration) *MemoryStore {
	return &MemoryStore{cache: cache.NewMemoryCache(config.GCInterval), ttl: config.TTL}
}

func (s *MemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.cache.Get(Key(key))
	if !ok {
		return nil, ErrNotFound
	}
	data := v.([]byte)
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Set(Key(key), append([]byte(nil), data...), s.ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Delete(Key(key))
	return nil
}

// Len returns the number of stored documents, expired ones not yet collected included.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

func (s *MemoryStore) Close() error {
	s.cache.StopGC()
	return nil
}
