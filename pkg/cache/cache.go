// Package cache is an in-process TTL store. It stands in for Redis when
// REDIS_ENABLED=false and in tests.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type Item struct {
	Value      []byte
	Expiration int64
}

type Cache struct {
	items map[string]Item
	mu    sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

func NewCache() *Cache {
	cache := &Cache{
		items: make(map[string]Item),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go cache.startGC(time.Minute)
	return cache
}

// SetClock replaces the time source.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Cache) Set(key string, value []byte, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = Item{
		Value:      value,
		Expiration: c.now().Add(duration).UnixNano(),
	}
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[key]
	if !found || c.now().UnixNano() >= item.Expiration {
		return nil, false
	}
	return item.Value, true
}

func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// GetJSON, SetJSON and Delete give the cache the same shape as the Redis client.
func (c *Cache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	data, ok := c.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.Remove(key)
		return false, nil
	}
	return true, nil
}

func (c *Cache) SetJSON(_ context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache item: %w", err)
	}
	c.Set(key, data, ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.Remove(key)
	return nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the GC goroutine.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) startGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

func (c *Cache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixNano()
	for k, v := range c.items {
		if now >= v.Expiration {
			delete(c.items, k)
		}
	}
}
