package aggregator

import (
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	c.Set("k", []byte("v"), time.Minute)

	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("expected hit with %q, got %q (ok=%v)", "v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("unexpected hit for missing key")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	c.Set("k", []byte("v"), 10*time.Millisecond)

	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestMemoryCacheIgnoresNonPositiveTTL(t *testing.T) {
	c := NewMemoryCache()
	c.Set("k", []byte("v"), 0)
	if _, ok := c.Get("k"); ok {
		t.Error("zero TTL must not store anything")
	}
}

func TestMemoryCacheClear(t *testing.T) {
	c := NewMemoryCache()
	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)
	c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Error("expected cache to be empty after clear")
	}
}

func TestCacheKeyIsStableAndDistinct(t *testing.T) {
	if cacheKey("popular", "drama", "1") != cacheKey("popular", "drama", "1") {
		t.Error("same parts must produce the same key")
	}
	if cacheKey("popular", "drama", "1") == cacheKey("popular", "drama", "2") {
		t.Error("different parts must produce different keys")
	}
}

func TestSQLiteCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	c, err := NewSQLiteCache(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c.Set("k", []byte("persisted"), time.Minute)

	reopened, err := NewSQLiteCache(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.Get("k")
	if !ok || string(got) != "persisted" {
		t.Fatalf("expected persisted value, got %q (ok=%v)", got, ok)
	}

	reopened.Clear()
	if _, ok := reopened.Get("k"); ok {
		t.Error("expected empty cache after clear")
	}
}
