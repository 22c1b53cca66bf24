// Package lru implements the fixed-capacity embedding memoization cache.
//
// Embedding the same question twice costs a second round-trip to the
// embedding API; the cache short-circuits that for recently seen text.
// Keys are normalized query text, values are the immutable embedding
// vectors produced for them.
package lru

import (
	"container/list"
	"sync"

	"github.com/noorchat/noor/internal/rag"
)

// DefaultCapacity is the number of text->vector entries kept before the
// least-recently-used one is evicted.
const DefaultCapacity = 100

type entry struct {
	key string
	vec []float32
}

// Cache is a mutex-guarded LRU map from normalized text to embedding
// vectors. Safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[string]*list.Element
}

// New creates a Cache. capacity <= 0 falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached vector for text, marking the entry as most
// recently used. The second return value reports whether it was present.
func (c *Cache) Get(text string) ([]float32, bool) {
	key := rag.NormalizeQuery(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).vec, true
}

// Set stores a vector under the normalized text key. At capacity, the
// least-recently-used entry is evicted first.
func (c *Cache) Set(text string, vec []float32) {
	key := rag.NormalizeQuery(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).vec = vec
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}

	c.items[key] = c.order.PushFront(&entry{key: key, vec: vec})
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
