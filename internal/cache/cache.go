package cache

import (
	"context"
	"time"

	"stockaggr/internal/logging"
)

// Cacher is the contract shared by the Redis and memory layers.
type Cacher interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// ResponseCache is a layered TTL cache for API responses: Redis first,
// in-process memory as fallback. A Redis outage degrades to memory-only
// caching instead of failing requests.
type ResponseCache struct {
	redis  Cacher // may be nil when Redis is disabled
	memory *MemoryCache
	log    *logging.Logger
}

// NewResponseCache creates a layered response cache. redis may be nil.
func NewResponseCache(redis Cacher, memory *MemoryCache, log *logging.Logger) *ResponseCache {
	if memory == nil {
		memory = NewMemoryCache(0)
	}
	if log == nil {
		log = logging.GetGlobalLogger()
	}
	return &ResponseCache{redis: redis, memory: memory, log: log}
}

// Get retrieves a cached value, trying Redis then memory.
func (c *ResponseCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.redis != nil {
		if err := c.redis.Get(ctx, key, dest); err == nil {
			return nil
		}
	}
	return c.memory.Get(ctx, key, dest)
}

// Set stores a value in both layers. Redis failures are logged, not returned.
func (c *ResponseCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if c.redis != nil {
		if err := c.redis.Set(ctx, key, value, expiration); err != nil {
			c.log.WithError(err).Warnf("redis set failed for %s, falling back to memory", key)
		}
	}
	return c.memory.Set(ctx, key, value, expiration)
}

// Delete removes keys from both layers.
func (c *ResponseCache) Delete(ctx context.Context, keys ...string) error {
	if c.redis != nil {
		if err := c.redis.Delete(ctx, keys...); err != nil {
			c.log.WithError(err).Warn("redis delete failed")
		}
	}
	return c.memory.Delete(ctx, keys...)
}

// Close closes both layers.
func (c *ResponseCache) Close() error {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.WithError(err).Warn("redis close failed")
		}
	}
	return c.memory.Close()
}
