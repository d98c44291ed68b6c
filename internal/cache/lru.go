package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/SAP-F-2025/test-engine-service/internal/monitoring"
)

// Clock is injected so TTL and recency can be driven deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// Config describes one cache instance. Each payload shape gets its own instance.
type Config struct {
	Name     string
	Capacity int
	TTL      time.Duration // <= 0 disables expiry
	Clock    Clock
}

type entry[V any] struct {
	key        string
	value      V
	expiresAt  time.Time
	lastAccess time.Time
}

// LRU is a bounded, TTL-based cache with strict least-recently-accessed eviction.
// All methods are safe for concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	name     string
	capacity int
	ttl      time.Duration
	clock    Clock
	items    map[string]*list.Element
	order    *list.List // front is the most recently accessed
}

func NewLRU[V any](cfg Config) *LRU[V] {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	return &LRU[V]{
		name:     cfg.Name,
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		clock:    cfg.Clock,
		items:    make(map[string]*list.Element, cfg.Capacity),
		order:    list.New(),
	}
}

// Get returns the value for key and refreshes its last access. Expired entries are removed and reported as a miss.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		monitoring.CacheLookups.WithLabelValues(c.name, "miss").Inc()
		return zero, false
	}

	e := el.Value.(*entry[V])
	now := c.clock.Now()
	if c.expired(e, now) {
		c.removeElement(el)
		monitoring.CacheLookups.WithLabelValues(c.name, "expired").Inc()
		return zero, false
	}

	e.lastAccess = now
	c.order.MoveToFront(el)
	monitoring.CacheLookups.WithLabelValues(c.name, "hit").Inc()
	return e.value, true
}

// Set inserts or replaces key. Inserting a new key into a full cache evicts exactly one entry.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		e.lastAccess = now
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
			monitoring.CacheEvictions.WithLabelValues(c.name).Inc()
		}
	}

	el := c.order.PushFront(&entry[V]{
		key:        key,
		value:      value,
		expiresAt:  expiresAt,
		lastAccess: now,
	})
	c.items[key] = el
}

func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Contains reports whether a live entry exists without touching its recency.
func (c *LRU[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	return !c.expired(el.Value.(*entry[V]), c.clock.Now())
}

func (c *LRU[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len counts stored entries, including expired ones not yet removed.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[V]) Name() string { return c.name }

func (c *LRU[V]) Capacity() int { return c.capacity }

func (c *LRU[V]) expired(e *entry[V], now time.Time) bool {
	return c.ttl > 0 && !now.Before(e.expiresAt)
}

func (c *LRU[V]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[V])
	delete(c.items, e.key)
}
