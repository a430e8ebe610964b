/*
cache.go - Bounded LRU cache for derived read results

PURPOSE:
  Bounds the cost of repeated read queries (summaries, category totals,
  daily totals) without risking staleness.

INVALIDATION POLICY:
  Every mutation invalidates the WHOLE cache, unconditionally. Partial
  invalidation repeatedly under-invalidated in practice (stale zero
  totals after deletes), so correctness wins over micro-optimization:
  full invalidation is cheap, recomputation is cheap, stale data is not.

KEYS:
  Keys encode the full query shape (kind, window bounds, currency,
  optional category filter) so distinct queries never collide.

SEE ALSO:
  - store.go: The only caller; invalidates inside the mutation funnel
*/
package ledger

import (
	"container/list"
	"strings"
	"sync"
)

// =============================================================================
// CACHE - Capacity-bounded, least-recently-used eviction
// =============================================================================

const DefaultCacheCapacity = 1000

type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[string]*list.Element
}

type cacheItem struct {
	key   string
	value any
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the cached value and marks it most recently used.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheItem).value, true
}

// Set stores a value, evicting the least recently used item when full.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheItem).value = value
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheItem{key: key, value: value})
	c.items[key] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheItem).key)
		}
	}
}

// InvalidateAll drops everything. Called on every mutation.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)
}

// InvalidatePrefix drops all keys sharing a query-shape prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.order.Remove(el)
			delete(c.items, key)
		}
	}
}

// Len returns the number of cached values.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
