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

// Package cache holds a small expiring in-process key/value cache.
package cache

import (
	"sync"
	"time"
)

const defaultGCInterval = 5 * time.Minute

// MemoryCache maps keys to values that may expire. Expired values are invisible to Get at once
// and are removed by a background sweep that starts with the first expiring Set.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	gcInterval time.Duration
	gcRunning  bool
	stopped    bool
	stop       chan struct{}
}

// entry keeps the deadline as a wall-clock time; the zero deadline never expires.
type entry struct {
	value    interface{}
	deadline time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// NewMemoryCache creates a cache swept every gcInterval, five minutes when gcInterval <= 0.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	if gcInterval <= 0 {
		gcInterval = defaultGCInterval
	}
	return &MemoryCache{
		items:      make(map[string]entry),
		gcInterval: gcInterval,
		stop:       make(chan struct{}),
	}
}

// Set stores value under key. A ttl of 0 means the value never expires.
func (c *MemoryCache) Set(key string, value interface{}, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.deadline = time.Now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = e
	if ttl > 0 && !c.gcRunning && !c.stopped {
		c.gcRunning = true
		go c.gc()
	}
}

// Get returns the value under key unless it is missing or expired.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	if !ok || e.expired(time.Now()) {
		return nil, false
	}
	return e.value, true
}

// Take returns the value under key and removes it in one step.
func (c *MemoryCache) Take(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	delete(c.items, key)
	if e.expired(time.Now()) {
		return nil, false
	}
	return e.value, true
}

// Delete removes key. Missing keys are ignored.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len counts stored values, expired ones included until the next sweep.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// StopGC ends the background sweep for good. It may be called more than once.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		c.stopped = true
		close(c.stop)
	}
}

func (c *MemoryCache) gc() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.sweep(now)
		}
	}
}

func (c *MemoryCache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
		}
	}
}
