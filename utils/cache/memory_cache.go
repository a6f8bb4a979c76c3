/*
 * Copyright 2024 The RuleGo Authors.
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

// Package cache holds compiled artifacts, such as regular expressions and
// templates used by rule functions, so that they are built once per pattern.
package cache

import (
	"sync"
	"time"

	"github.com/rulego/rulepipe/api/types"
)

// DefaultCache is shared by the built-in functions.
var DefaultCache = NewMemoryCache(time.Minute * 5)

// MemoryCache is an in-memory cache implementation.
// It stores key-value pairs with optional expiration.
type MemoryCache struct {
	items      map[string]item
	mu         sync.RWMutex
	stopGc     chan struct{} // Channel to signal GC to stop
	ticker     *time.Ticker  // Ticker for GC
	gcInterval time.Duration // GC interval duration
}

// item represents a cached item with its value and expiration time.
// If expiration is 0, the item will never expire.
type item struct {
	value      interface{}
	expiration int64
}

var _ types.Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a new MemoryCache instance.
// Garbage collection starts when the first expirable item is stored.
func NewMemoryCache(gcInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		items:      make(map[string]item),
		stopGc:     make(chan struct{}),
		gcInterval: time.Minute * 5,
	}
	if gcInterval > 0 {
		c.gcInterval = gcInterval
	}
	return c
}

// Set stores a value with a time-to-live such as "10m". An empty ttl never expires.
func (c *MemoryCache) Set(key string, value interface{}, ttl string) error {
	var expiration int64
	if ttl != "" {
		dur, err := time.ParseDuration(ttl)
		if err != nil {
			return err
		}
		if dur > 0 {
			expiration = time.Now().Add(dur).UnixNano()
		}
	}

	c.mu.Lock()
	c.items[key] = item{value: value, expiration: expiration}
	shouldStartGC := expiration > 0 && c.ticker == nil
	c.mu.Unlock()

	if shouldStartGC {
		c.StartGC()
	}
	return nil
}

// Get returns the value stored under key, or nil if it is missing or expired.
func (c *MemoryCache) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found {
		return nil
	}
	if it.expiration > 0 && time.Now().UnixNano() > it.expiration {
		return nil
	}
	return it.value
}

// GetOrLoad returns the cached value for key, building and storing it with load on a miss.
// Errors from load are returned and nothing is stored.
func (c *MemoryCache) GetOrLoad(key string, ttl string, load func() (interface{}, error)) (interface{}, error) {
	if v := c.Get(key); v != nil {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	if err := c.Set(key, v, ttl); err != nil {
		return nil, err
	}
	return v, nil
}

// Has reports whether key holds a value that has not expired.
func (c *MemoryCache) Has(key string) bool {
	return c.Get(key) != nil
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// Len returns the number of stored items, expired ones included until collected.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// StartGC starts the garbage collection process if not already running and if there are expirable items.
func (c *MemoryCache) StartGC() {
	c.mu.Lock()
	if c.ticker != nil {
		c.mu.Unlock()
		return
	}

	hasExpirable := false
	for _, itm := range c.items {
		if itm.expiration > 0 {
			hasExpirable = true
			break
		}
	}
	if !hasExpirable {
		c.mu.Unlock()
		return
	}

	ticker := time.NewTicker(c.gcInterval)
	stop := make(chan struct{})
	c.ticker = ticker
	c.stopGc = stop
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				c.deleteExpired()
			case <-stop:
				ticker.Stop()
				c.mu.Lock()
				if c.ticker == ticker {
					c.ticker = nil
				}
				c.mu.Unlock()
				return
			}
		}
	}()
}

// StopGC stops the garbage collection process. It is safe to call multiple times.
func (c *MemoryCache) StopGC() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ticker != nil && c.stopGc != nil {
		select {
		case <-c.stopGc:
		default:
			close(c.stopGc)
		}
	}
}

// deleteExpired removes all expired items and stops the GC when nothing expirable is left.
func (c *MemoryCache) deleteExpired() {
	now := time.Now().UnixNano()

	c.mu.Lock()
	hasExpirableRemaining := false
	for k, v := range c.items {
		if v.expiration > 0 && now > v.expiration {
			delete(c.items, k)
		} else if v.expiration > 0 {
			hasExpirableRemaining = true
		}
	}
	c.mu.Unlock()

	if !hasExpirableRemaining {
		c.StopGC()
	}
}
