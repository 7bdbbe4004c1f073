package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type listing struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
}

func newClockedCache(t *testing.T, size int) (*MemoryCache, *time.Time) {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc := NewMemoryCache(WithMemoryMaxSize(size), WithMemoryCleanup(time.Hour))
	mc.now = func() time.Time { return now }
	t.Cleanup(func() { _ = mc.Close() })
	return mc, &now
}

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc, now := newClockedCache(t, 10)

	in := []listing{{"bitcoin", 64000.5}, {"ethereum", 3100}}
	if err := mc.Set(ctx, "markets", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out []listing
	if err := mc.Get(ctx, "markets", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Fatalf("got %+v", out)
	}

	var s string
	_ = mc.Set(ctx, "raw", "plain", 0)
	if err := mc.Get(ctx, "raw", &s); err != nil || s != "plain" {
		t.Fatalf("string get = %q, %v", s, err)
	}

	*now = now.Add(2 * time.Minute)
	if err := mc.Get(ctx, "markets", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
	if err := mc.Get(ctx, "raw", &s); err != nil {
		t.Fatalf("no-expiry key should survive: %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc, now := newClockedCache(t, 2)

	_ = mc.Set(ctx, "a", "1", 0)
	*now = now.Add(time.Second)
	_ = mc.Set(ctx, "b", "2", 0)
	*now = now.Add(time.Second)
	var v string
	_ = mc.Get(ctx, "a", &v)
	*now = now.Add(time.Second)
	_ = mc.Set(ctx, "c", "3", 0)

	if err := mc.Get(ctx, "b", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("b should have been evicted, got %v", err)
	}
	for _, k := range []string{"a", "c"} {
		if err := mc.Get(ctx, k, &v); err != nil {
			t.Fatalf("%s should remain: %v", k, err)
		}
	}
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc, now := newClockedCache(t, 10)

	token, ok, _ := mc.TryLock(ctx, "batch:stock", time.Minute)
	if !ok || token == "" {
		t.Fatalf("first lock should succeed")
	}
	if _, ok, _ := mc.TryLock(ctx, "batch:stock", time.Minute); ok {
		t.Fatalf("second lock should fail while held")
	}
	_ = mc.Unlock(ctx, "batch:stock", "someone-else")
	if _, ok, _ := mc.TryLock(ctx, "batch:stock", time.Minute); ok {
		t.Fatalf("unlock with a foreign token must not release")
	}
	_ = mc.Unlock(ctx, "batch:stock", token)
	if _, ok, _ := mc.TryLock(ctx, "batch:stock", time.Minute); !ok {
		t.Fatalf("lock should be free after unlock")
	}
	*now = now.Add(2 * time.Minute)
	if _, ok, _ := mc.TryLock(ctx, "batch:stock", time.Minute); !ok {
		t.Fatalf("expired lock should be reacquirable")
	}
}

func TestMemoryCacheLockSurvivesEviction(t *testing.T) {
	ctx := context.Background()
	mc, now := newClockedCache(t, 2)

	if _, ok, _ := mc.TryLock(ctx, "batch:stock", time.Hour); !ok {
		t.Fatalf("lock should succeed")
	}
	for _, k := range []string{"markets:a", "markets:b", "markets:c", "markets:d"} {
		*now = now.Add(time.Second)
		_ = mc.Set(ctx, k, "x", time.Hour)
	}
	if _, ok, _ := mc.TryLock(ctx, "batch:stock", time.Hour); ok {
		t.Fatalf("filling the cache must not release a held lock")
	}
}
