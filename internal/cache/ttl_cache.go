package cache

import (
	"sync"
	"time"
)

// Cache provides a minimal TTL cache interface for hot-path lookups.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
}

type entry[V any] struct {
	value    V
	deadline time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// TTLCache stores values in-memory with per-entry TTLs. Expired entries are
// dropped lazily on read and pruned in bulk once the map doubles past the
// last prune, so an idle cache never holds more than twice its live set.
type TTLCache[K comparable, V any] struct {
	mu        sync.RWMutex
	entries   map[K]entry[V]
	pruneSize int
}

const minPruneSize = 64

// NewTTLCache constructs a new TTLCache instance.
func NewTTLCache[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{
		entries:   make(map[K]entry[V]),
		pruneSize: minPruneSize,
	}
}

// Get returns a cached value if it exists and has not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if e.expired(time.Now()) {
		c.Delete(key)
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the provided TTL. A non-positive TTL stores the
// value without expiry.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if c == nil {
		return
	}
	now := time.Now()
	var deadline time.Time
	if ttl > 0 {
		deadline = now.Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, deadline: deadline}
	if len(c.entries) >= c.pruneSize {
		c.prune(now)
	}
	c.mu.Unlock()
}

// Delete removes a cached entry.
func (c *TTLCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// prune removes expired entries; callers hold the write lock.
func (c *TTLCache[K, V]) prune(now time.Time) {
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
	c.pruneSize = 2 * len(c.entries)
	if c.pruneSize < minPruneSize {
		c.pruneSize = minPruneSize
	}
}
