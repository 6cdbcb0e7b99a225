// Package cache provides a concurrency-safe in-process TTL cache keyed by
// customer id. Entries record their insertion time; a read older than the
// TTL is reported stale so callers can re-validate against durable storage.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the entry time-to-live when none is configured.
const DefaultTTL = 5 * time.Minute

// Entry pairs a cached value with its insertion timestamp.
type Entry[T any] struct {
	Value      T
	InsertedAt time.Time
}

// TTLCache is a map-backed cache with per-entry expiry. The `now` function
// is injectable for deterministic testing.
type TTLCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
	ttl     time.Duration

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// New creates a TTLCache with the given TTL. A ttl <= 0 uses DefaultTTL.
func New[T any](ttl time.Duration) *TTLCache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[T]{
		entries: make(map[string]Entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the clock used for insertion and staleness checks.
// Intended for tests.
func (c *TTLCache[T]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached value for key. The bool is false when the key is
// absent or the entry has outlived the TTL; stale entries are never
// returned as hits.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.InsertedAt) > c.ttl {
		var zero T
		return zero, false
	}
	return e.Value, true
}

// Set stores value under key, stamped with the current time.
func (c *TTLCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry[T]{Value: value, InsertedAt: c.now()}
}

// Invalidate removes the entry for key. It is a no-op if absent.
func (c *TTLCache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Sweep removes all entries older than the TTL and returns the number
// evicted. It is intended to be called periodically by a background job,
// independent of the read/write path, to bound memory.
func (c *TTLCache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, e := range c.entries {
		if now.Sub(e.InsertedAt) > c.ttl {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of entries currently held, including stale ones
// not yet swept.
func (c *TTLCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
