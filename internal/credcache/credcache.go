// Package credcache holds resolved credentials in memory for a bounded time.
package credcache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a small LRU of credential values with a per-entry TTL.
// Methods are safe for concurrent use. A zero or negative TTL stores nothing.
type Cache struct {
	mu    sync.Mutex
	cap   int
	ll    *list.List // front = most-recently used
	items map[string]*list.Element
	now   func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

type entry struct {
	name    string
	value   string
	expires time.Time
}

// Config groups constructor options.
type Config struct {
	Capacity int
	Now      func() time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// New creates a Cache.
func New(cfg Config) *Cache {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 16
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element, capacity),
		now:   now,
	}
}

// Get returns the value for name if present and not expired.
func (c *Cache) Get(name string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[name]
	if !ok {
		c.misses.Add(1)
		return "", false
	}
	ent := el.Value.(*entry)
	if !c.now().Before(ent.expires) {
		c.remove(el)
		c.misses.Add(1)
		return "", false
	}
	c.ll.MoveToFront(el)
	c.hits.Add(1)
	return ent.value, true
}

// Set stores value under name for ttl.
func (c *Cache) Set(name, value string, ttl time.Duration) {
	if ttl <= 0 {
		c.Invalidate(name)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(ttl)
	if el, ok := c.items[name]; ok {
		ent := el.Value.(*entry)
		ent.value = value
		ent.expires = expires
		c.ll.MoveToFront(el)
		return
	}

	c.items[name] = c.ll.PushFront(&entry{name: name, value: value, expires: expires})
	for c.ll.Len() > c.cap {
		c.remove(c.ll.Back())
	}
}

// Invalidate drops name so the next Get misses.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[name]; ok {
		c.remove(el)
	}
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	size := c.ll.Len()
	c.mu.Unlock()
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: size}
}

func (c *Cache) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).name)
}
