// Package sessioncache provides a bounded LRU cache with per-entry TTL,
// used to front session lookups so request handlers avoid redundant
// store queries.
//
// Expiry is lazy: entries are checked and evicted on Get, there is no
// background sweep. A Get hit refreshes LRU recency but not the TTL
// clock; only Set restarts an entry's TTL.
package sessioncache

import (
	"container/list"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultMaxSize is the default entry capacity.
	DefaultMaxSize = 1000

	// DefaultTTL is the default per-entry time to live.
	DefaultTTL = 5 * time.Minute
)

type entry struct {
	key      string
	value    any
	storedAt time.Time
}

// Cache is a fixed-capacity LRU cache with per-entry TTL. All methods
// are safe for concurrent use; a single mutex keeps the LRU list
// consistent, which is sufficient at session-cache sizes.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	order   *list.List // front = most recently used
	items   map[string]*list.Element
	now     func() time.Time
	logger  *log.Logger
}

// New creates a cache holding at most maxSize entries, each live for ttl
// after its last Set. Non-positive arguments fall back to the defaults.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		now:     time.Now,
		logger:  log.Default().WithPrefix("sessioncache"),
	}
	c.logger.Debug("initialized", "maxsize", maxSize, "ttl", ttl)
	return c
}

// Get returns the cached value for key if present and not expired.
// Stale entries are evicted on the spot. A hit moves the entry to the
// front of the LRU order without extending its TTL.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	ent := elem.Value.(*entry)
	if c.now().Sub(ent.storedAt) >= c.ttl {
		c.order.Remove(elem)
		delete(c.items, key)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return ent.value, true
}

// Set inserts or overwrites key with a fresh TTL. When the cache is at
// capacity and key is new, the least-recently-used entry is evicted
// first.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry)
		ent.value = value
		ent.storedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			evicted := oldest.Value.(*entry)
			c.order.Remove(oldest)
			delete(c.items, evicted.key)
			c.logger.Debug("evicted LRU entry", "key", evicted.key)
		}
	}

	c.items[key] = c.order.PushFront(&entry{
		key:      key,
		value:    value,
		storedAt: c.now(),
	})
}

// Clear drops all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
}

// Len reports the number of entries, counting any not yet lazily expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
