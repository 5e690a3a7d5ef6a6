// internal/feed/dedup.go
package feed

import "sync"

// SeenCache is a bounded set of transaction signatures already handed to
// the handler. The websocket stream and the polling fallback overlap, so
// both paths consult it before dispatching. Retention is FIFO: once the
// cache is full the oldest signature is forgotten, which is safe because
// duplicate delivery windows are short.
type SeenCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	set      map[string]struct{}
}

// NewSeenCache creates a cache retaining up to capacity signatures.
func NewSeenCache(capacity int) *SeenCache {
	if capacity <= 0 {
		capacity = 4096
	}
	return &SeenCache{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		set:      make(map[string]struct{}, capacity),
	}
}

// Observe marks the signature as seen and reports whether it had been
// seen before.
func (c *SeenCache) Observe(signature string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.set[signature]; ok {
		return true
	}

	if len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.set, oldest)
	}
	c.order = append(c.order, signature)
	c.set[signature] = struct{}{}
	return false
}

// Len returns the number of retained signatures.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.set)
}
