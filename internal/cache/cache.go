// Package cache provides a small bounded in-memory cache with FIFO or LRU
// eviction. The resolver uses it to keep parsed include documents so that a
// file included from several places is parsed once per load.
package cache

import (
	"container/list"
	"sync"
)

// Cache is a bounded key-value cache. A maxDepth of zero disables caching
// altogether, which is useful in tests that need to observe every load.
// Safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	maxDepth int
	isLRU    bool
	order    *list.List // front = next to evict
	entries  map[K]*list.Element
}

type entry[K comparable, V any] struct {
	key K
	val V
}

// New creates a cache holding at most maxDepth entries, evicting in
// first-in-first-out order. maxDepth must not be negative.
func New[K comparable, V any](maxDepth int) *Cache[K, V] {
	if maxDepth < 0 {
		panic("cache: maxDepth must be >= 0")
	}
	return &Cache[K, V]{
		maxDepth: maxDepth,
		order:    list.New(),
		entries:  make(map[K]*list.Element),
	}
}

// NewLRU creates a cache like New but with least-recently-used eviction:
// every Get refreshes the entry's position.
func NewLRU[K comparable, V any](maxDepth int) *Cache[K, V] {
	c := New[K, V](maxDepth)
	c.isLRU = true
	return c
}

// Get returns the cached value for the key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.isLRU {
		c.order.MoveToBack(elem)
	}
	return elem.Value.(entry[K, V]).val, true
}

// Set stores a value, evicting the oldest entry if the cache is full.
// Setting an existing key replaces its value and refreshes its position.
func (c *Cache[K, V]) Set(key K, val V) {
	if c.maxDepth == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value = entry[K, V]{key: key, val: val}
		c.order.MoveToBack(elem)
		return
	}

	if c.order.Len() >= c.maxDepth {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(entry[K, V]).key)
	}

	c.entries[key] = c.order.PushBack(entry[K, V]{key: key, val: val})
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
