package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type cachedQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(100)
	defer c.Close()
	ctx := context.Background()

	in := cachedQuote{Symbol: "600000.SH", Price: 10.42}
	if err := c.Set(ctx, "quote:600000.SH", in, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out cachedQuote
	if err := c.Get(ctx, "quote:600000.SH", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(100)
	defer c.Close()

	var out cachedQuote
	if err := c.Get(context.Background(), "nope", &out); err == nil {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(100)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", cachedQuote{Symbol: "x"}, 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	var out cachedQuote
	if err := c.Get(ctx, "k", &out); err == nil {
		t.Error("expected miss after expiry")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(100)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)
	c.Set(ctx, "b", 2, time.Minute)
	if err := c.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestMemoryCacheBounded(t *testing.T) {
	c := NewMemoryCache(2)
	defer c.Close()
	ctx := context.Background()

	// 过期条目可被回收腾出空间
	c.Set(ctx, "stale", 1, time.Nanosecond)
	c.Set(ctx, "live", 2, time.Minute)
	time.Sleep(time.Millisecond)

	if err := c.Set(ctx, "next", 3, time.Minute); err != nil {
		t.Fatalf("expected eviction of expired entry, got %v", err)
	}

	// Full of live entries: reject instead of growing.
	if err := c.Set(ctx, "overflow", 4, time.Minute); err == nil {
		t.Error("expected rejection when full of live entries")
	}
}

func TestResponseCacheMemoryOnly(t *testing.T) {
	rc := NewResponseCache(nil, NewMemoryCache(100), nil)
	defer rc.Close()
	ctx := context.Background()

	if err := rc.Set(ctx, "k", cachedQuote{Symbol: "600000.SH"}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var out cachedQuote
	if err := rc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Symbol != "600000.SH" {
		t.Errorf("got %+v", out)
	}
}

func TestResponseCacheRedisFailureDegrades(t *testing.T) {
	rc := NewResponseCache(&failingCacher{}, NewMemoryCache(100), nil)
	defer rc.Close()
	ctx := context.Background()

	// Redis 故障时降级为内存缓存
	if err := rc.Set(ctx, "k", cachedQuote{Symbol: "s"}, time.Minute); err != nil {
		t.Fatalf("Set must not fail when redis is down: %v", err)
	}
	var out cachedQuote
	if err := rc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("Get must fall back to memory: %v", err)
	}
}

// failingCacher simulates an unreachable Redis.
type failingCacher struct{}

func (f *failingCacher) Get(ctx context.Context, key string, dest interface{}) error {
	return fmt.Errorf("connection refused")
}

func (f *failingCacher) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return fmt.Errorf("connection refused")
}

func (f *failingCacher) Delete(ctx context.Context, keys ...string) error {
	return fmt.Errorf("connection refused")
}

func (f *failingCacher) Close() error { return nil }
