// Package cache provides a bounded in-memory cache with time-based expiry
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Defaults applied when the configured values are not positive
const (
	DefaultTTL      = 300 * time.Second
	DefaultCapacity = 100
)

type entry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Name      string `json:"name"`
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Cache maps string keys to values for at most ttl after insertion.
// When full, the entry inserted longest ago is evicted first; reads do not
// change eviction order. Overwriting a key counts as a fresh insertion.
type Cache[V any] struct {
	name     string
	ttl      time.Duration
	capacity int
	now      func() time.Time

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = oldest insertion

	hits, misses, evictions uint64

	group singleflight.Group
}

// Option configures a Cache
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used for expiry
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a cache. Non-positive ttl or capacity fall back to the defaults.
func New[V any](name string, ttl time.Duration, capacity int, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[V]{
		name:     name,
		ttl:      ttl,
		capacity: capacity,
		now:      o.now,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Name returns the cache name used in logs and stats
func (c *Cache[V]) Name() string {
	return c.name
}

func (c *Cache[V]) expired(e *entry[V], now time.Time) bool {
	return now.Sub(e.insertedAt) >= c.ttl
}

// Get returns the value for key if present and younger than the TTL.
// An expired entry is removed.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.expired(e, c.now()) {
		c.order.Remove(el)
		delete(c.items, key)
		c.misses++
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Put stores value under key, evicting the oldest insertion when full.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[V]).key)
		c.evictions++
	}
	c.items[key] = c.order.PushBack(&entry[V]{key: key, value: value, insertedAt: c.now()})
}

// Delete removes key if present
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// GetOrLoad returns the cached value for key or calls load to produce it.
// Concurrent callers for the same key share one load, which runs detached
// from any single caller's cancellation. A caller whose ctx ends stops
// waiting without aborting the load for the others. Errors are not cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A concurrent caller may have stored the value while we waited
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.Put(key, v)
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// peek reads without touching hit/miss counters
func (c *Cache[V]) peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.expired(e, c.now()) {
		return zero, false
	}
	return e.value, true
}

// Purge removes every expired entry and returns the number removed.
func (c *Cache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	// Insertion order is also expiry order, so stop at the first live entry
	for el := c.order.Front(); el != nil; {
		e := el.Value.(*entry[V])
		if !c.expired(e, now) {
			break
		}
		next := el.Next()
		c.order.Remove(el)
		delete(c.items, e.key)
		removed++
		el = next
	}
	return removed
}

// Len returns the number of stored entries, including any not yet purged.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns counters for monitoring
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Name:      c.name,
		Size:      c.order.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
