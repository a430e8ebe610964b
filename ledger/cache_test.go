package ledger_test

import (
	"fmt"
	"testing"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// LRU BEHAVIOR
// =============================================================================

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := ledger.NewCache(3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}

	c.Set("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestCache_SetExistingKeyUpdatesInPlace(t *testing.T) {
	c := ledger.NewCache(2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	v, ok := c.Get("a")
	if !ok || v.(int) != 10 {
		t.Errorf("expected updated value 10, got %v", v)
	}
	if c.Len() != 2 {
		t.Errorf("overwrite must not grow the cache, len=%d", c.Len())
	}
}

func TestCache_NeverExceedsCapacity(t *testing.T) {
	c := ledger.NewCache(5)
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	if c.Len() != 5 {
		t.Errorf("expected len 5, got %d", c.Len())
	}
}

// =============================================================================
// INVALIDATION
// =============================================================================

func TestCache_InvalidateAll(t *testing.T) {
	c := ledger.NewCache(10)
	c.Set("summary|USD|2025-01", 1)
	c.Set("daily|USD|2025-01-05", 2)

	c.InvalidateAll()

	if c.Len() != 0 {
		t.Errorf("expected empty cache, len=%d", c.Len())
	}
	if _, ok := c.Get("summary|USD|2025-01"); ok {
		t.Error("invalidated key must miss")
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := ledger.NewCache(10)
	c.Set("summary|USD|a", 1)
	c.Set("summary|EUR|a", 2)
	c.Set("daily|USD|a", 3)

	c.InvalidatePrefix("summary|")

	if _, ok := c.Get("summary|USD|a"); ok {
		t.Error("prefixed key must be gone")
	}
	if _, ok := c.Get("daily|USD|a"); !ok {
		t.Error("unrelated key must survive")
	}
}
