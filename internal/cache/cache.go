// Package cache provides the in-memory TTL store for upstream API
// responses. Entries expire lazily: an expired entry is dropped on the Get
// that observes it, so memory growth is bounded by key cardinality within
// one TTL window.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL matches the upstream refresh cadence of the provider.
const DefaultTTL = 5 * time.Minute

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Keys   int   `json:"keys"`
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a concurrency-safe key/value store with per-entry TTL.
type Cache struct {
	defaultTTL time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]entry
	hits    int64
	misses  int64
}

// New creates a Cache. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, clock clockwork.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		defaultTTL: ttl,
		clock:      clock,
		entries:    make(map[string]entry),
	}
}

// Get returns the live value for key. A value past its expiry is never
// returned; the stale entry is evicted and the lookup counts as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key. A non-positive ttl uses the cache default.
// An existing entry is overwritten and its expiry reset.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.clock.Now().Add(ttl)}
}

// Stats reports hit/miss counters and the current key count. Expired but
// not-yet-evicted entries still count as keys.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Keys: len(c.entries)}
}

// Clear drops all entries and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.hits = 0
	c.misses = 0
}
