package frameproc

import "sync"

// boundedCache is a mutex-guarded map with FIFO eviction. Insertion order is
// tracked so the oldest entry goes first when the limit is exceeded.
type boundedCache[K comparable, V any] struct {
	mu      sync.Mutex
	limit   int
	entries map[K]V
	order   []K
}

func newBoundedCache[K comparable, V any](limit int) *boundedCache[K, V] {
	if limit < 1 {
		limit = 1
	}
	return &boundedCache[K, V]{
		limit:   limit,
		entries: make(map[K]V, limit),
	}
}

func (c *boundedCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *boundedCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = value

	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *boundedCache[K, V]) evict(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *boundedCache[K, V]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]V, c.limit)
	c.order = nil
}

func (c *boundedCache[K, V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
