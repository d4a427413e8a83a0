// Package cache provides a thread-safe, loader-backed value cache with
// time-based expiration. The server uses it to share one corpus snapshot
// between requests.
package cache

import (
	"sync"
	"time"
)

// NoExpiry keeps a loaded value until Invalidate is called.
const NoExpiry time.Duration = -1

// TTLCache holds a single value produced by a loader.
//
// A TTL of zero disables caching: every Get calls the loader. A positive
// TTL reuses the value until it is that old. NoExpiry reuses it until
// Invalidate. Loader errors are returned to the caller and never cached.
type TTLCache[V any] struct {
	mu       sync.Mutex
	load     func() (V, error)
	ttl      time.Duration
	value    V
	loadedAt time.Time
	valid    bool
	loads    uint64
	now      func() time.Time
}

// New creates a cache for values produced by load.
func New[V any](ttl time.Duration, load func() (V, error)) *TTLCache[V] {
	return &TTLCache[V]{
		load: load,
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get returns the cached value, loading it when the cache is empty or
// expired. Concurrent callers wait for a single load.
func (c *TTLCache[V]) Get() (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && !c.isExpiredLocked() {
		return c.value, nil
	}

	value, err := c.load()
	c.loads++
	if err != nil {
		var zero V
		c.value, c.valid = zero, false
		return zero, err
	}
	c.value = value
	c.loadedAt = c.now()
	c.valid = c.ttl != 0
	return value, nil
}

// IsExpired reports whether the next Get will call the loader.
func (c *TTLCache[V]) IsExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.valid || c.isExpiredLocked()
}

// isExpiredLocked MUST be called with the lock held.
func (c *TTLCache[V]) isExpiredLocked() bool {
	switch {
	case c.ttl == NoExpiry:
		return false
	case c.ttl <= 0:
		return true
	}
	return c.now().Sub(c.loadedAt) >= c.ttl
}

// Invalidate drops the cached value so the next Get reloads.
func (c *TTLCache[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	c.value = zero
	c.valid = false
	c.loadedAt = time.Time{}
}

// Loads returns how many times the loader has been called.
func (c *TTLCache[V]) Loads() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}
