// Package idempotency remembers the answer to a keyed request for a while, so
// a client retrying a create after a lost response does not create twice.
package idempotency

import (
	"sync"
	"time"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a time-bounded key store. A nil *Cache stores nothing.
type Cache struct {
	mu    sync.Mutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time

	sets int
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		items: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the stored value if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value until the ttl runs out. Every 256th call sweeps expired keys.
func (c *Cache) Set(key string, value any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.items[key] = entry{value: value, expiresAt: now.Add(c.ttl)}

	c.sets++
	if c.sets%256 == 0 {
		for k, e := range c.items {
			if !now.Before(e.expiresAt) {
				delete(c.items, k)
			}
		}
	}
}

// Len reports how many keys are held, expired ones included until swept.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
