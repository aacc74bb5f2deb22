package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var _ CacheInterface = (*MemoryCache)(nil)

// MemoryCache is an in-process LRU with a single TTL for all entries.
type MemoryCache struct {
	lru *expirable.LRU[string, string]
	ttl time.Duration
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size < 1 {
		size = 1
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, string](size, nil, ttl),
		ttl: ttl,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := c.lru.Get(key)
	return value, ok, nil
}

// Set ignores ttl; entries expire after the cache-wide TTL.
func (c *MemoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.lru.Add(key, value)
	return nil
}

func (c *MemoryCache) Health(context.Context) map[string]any {
	return map[string]any{
		"status":    "healthy",
		"type":      "memory",
		"key_count": c.lru.Len(),
	}
}

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}
