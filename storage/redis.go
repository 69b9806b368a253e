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
	"errors"
	"fmt"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/redis/go-redis/v9"
)

// RedisConfiguration configures the redis store.
type RedisConfiguration struct {
	// Server is host:port.
	Server   string
	Password string
	DB       int
	// PoolSize caps open connections. 0 leaves the client default.
	PoolSize int
	// TTL expires documents not saved for this long. 0 keeps them forever.
	TTL time.Duration
}

// RedisStore keeps each document as a plain string value.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ types.ValueStore = (*RedisStore)(nil)

// NewRedisStore connects and pings the server.
func NewRedisStore(config RedisConfiguration) (*RedisStore, error) {
	if config.Server == "" {
		config.Server = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Server,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: redis connection failed: %w", err)
	}
	return NewRedisStoreWithClient(client, config.TTL), nil
}

// NewRedisStoreWithClient uses an existing client. The store owns client from then on.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, Key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storage: save %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, Key(key)).Err(); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
