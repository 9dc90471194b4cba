package cache

import (
	"container/list"
	"sync"
	"time"
)

const (
	// DefaultMaxSize is used when Config.MaxSize is not positive
	DefaultMaxSize = 100

	// DefaultTTL is used when Config.TTL is not positive
	DefaultTTL = 5 * time.Minute
)

// Config holds the cache configuration.
type Config struct {
	// Name labels the cache in metrics
	Name string

	// MaxSize is the maximum number of stored entries
	MaxSize int

	// TTL is the default lifetime of an entry
	TTL time.Duration
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the cache's time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Cache is a bounded key/value store with least-recently-used eviction and
// per-entry expiry. It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	name    string
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	// front is most recently used
	order *list.List
	items map[K]*list.Element
}

type item[K comparable, V any] struct {
	key   K
	entry Entry[V]
}

// New creates a cache. Non-positive MaxSize and TTL fall back to
// DefaultMaxSize and DefaultTTL.
func New[K comparable, V any](cfg Config, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &Cache[K, V]{
		name:    cfg.Name,
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		now:     o.now,
		order:   list.New(),
		items:   make(map[K]*list.Element, cfg.MaxSize),
	}
}

// Get returns the value stored under key.
// An expired entry is deleted and reported as absent. A hit moves the key to
// the most-recently-used position.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.lookup(key)
	if !ok {
		CacheMisses.WithLabelValues(c.name).Inc()
		var zero V
		return zero, false
	}

	CacheHits.WithLabelValues(c.name).Inc()
	return el.Value.(*item[K, V]).entry.Value, true
}

// Has reports whether a live entry exists for key. It has the same side
// effects as Get.
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.lookup(key)
	return ok
}

// Set stores value under key with the default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key with the given lifetime. A non-positive
// ttl means the cache default. If key is new and the cache is full, the
// least-recently-used entry is evicted first.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry[V]{Value: value, Expires: c.now().Add(ttl)}

	if el, ok := c.items[key]; ok {
		el.Value.(*item[K, V]).entry = entry
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
			CacheEvictions.WithLabelValues(c.name).Inc()
		}
	}

	c.items[key] = c.order.PushFront(&item[K, V]{key: key, entry: entry})
	CacheEntries.WithLabelValues(c.name).Set(float64(c.order.Len()))
}

// Delete removes key and reports whether an entry was removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.remove(el)
	return true
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[K]*list.Element, c.maxSize)
	CacheEntries.WithLabelValues(c.name).Set(0)
}

// Len returns the number of stored entries. Expired entries count until they
// are touched.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Keys returns the stored keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*item[K, V]).key)
	}
	return keys
}

// lookup finds a live element and marks it most recently used.
// Must be called with c.mu held.
func (c *Cache[K, V]) lookup(key K) (*list.Element, bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}

	if el.Value.(*item[K, V]).entry.ExpiredAt(c.now()) {
		c.remove(el)
		CacheExpirations.WithLabelValues(c.name).Inc()
		return nil, false
	}

	c.order.MoveToFront(el)
	return el, true
}

// remove must be called with c.mu held.
func (c *Cache[K, V]) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*item[K, V]).key)
	CacheEntries.WithLabelValues(c.name).Set(float64(c.order.Len()))
}
