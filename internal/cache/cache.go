// Package cache keeps recent spreadsheet reads per house.
//
// All entries share one invalidation scope: a write by any house changes the
// aggregate counts every house sees, so Invalidate drops everything.
package cache

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/staldhusene/faellesspisning/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched value is served.
const DefaultTTL = 10 * time.Minute

type entry[V any] struct {
	value     V
	fetchedAt time.Time
	gen       uint64
}

type Cache[V any] struct {
	ttl   time.Duration
	gen   atomic.Uint64
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry[V]

	now func() time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key or calls fetch. Concurrent misses for
// the same key within one generation share a single fetch.
func (c *Cache[V]) Get(key string, fetch func() (V, error)) (V, error) {
	gen := c.gen.Load()
	if v, ok := c.lookup(key, gen); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	v, err, _ := c.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		c.store(key, entry[V]{value: v, fetchedAt: c.now(), gen: gen})
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate makes every current entry a miss, including values still being
// fetched when it is called.
func (c *Cache[V]) Invalidate() {
	c.gen.Add(1)
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
	metrics.CacheInvalidations.Inc()
}

// Generation is the current invalidation scope.
func (c *Cache[V]) Generation() uint64 {
	return c.gen.Load()
}

func (c *Cache[V]) lookup(key string, gen uint64) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || e.gen != gen || c.now().Sub(e.fetchedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) store(key string, e entry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.gen != c.gen.Load() {
		return
	}
	c.entries[key] = e
}
