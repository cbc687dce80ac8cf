// Package cache provides the in-process response cache used when no Redis instance is
// configured.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// MemoryCache is a size-bounded LRU of model responses with a per-cache TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.ModelResponse]
	ttl time.Duration
}

// NewMemoryCache creates a cache holding at most maxItems entries for ttl each.
func NewMemoryCache(maxItems int, ttl time.Duration) (*MemoryCache, error) {
	if maxItems <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxItems)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.ModelResponse](maxItems, nil, ttl),
		ttl: ttl,
	}, nil
}

// Get returns a copy of the cached response.
func (c *MemoryCache) Get(_ context.Context, key string) (*domain.ModelResponse, bool, error) {
	resp, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	cp := *resp
	return &cp, true, nil
}

// Set stores a copy of resp. The LRU applies one TTL to every entry, so a per-call ttl
// longer than the cache TTL is truncated to it.
func (c *MemoryCache) Set(_ context.Context, key string, resp *domain.ModelResponse, _ time.Duration) error {
	if resp == nil {
		return nil
	}
	cp := *resp
	c.lru.Add(key, &cp)
	return nil
}

// Remove evicts key.
func (c *MemoryCache) Remove(key string) {
	c.lru.Remove(key)
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Purge empties the cache.
func (c *MemoryCache) Purge() {
	c.lru.Purge()
}
