// Package cache is the process-wide in-memory cache with per-key TTL.
package cache

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultTTL applies when Set is called with ttl <= 0.
	DefaultTTL = 5 * time.Minute
	// LinkTTL is used for per-link entries: link records change rarely.
	LinkTTL = 10 * time.Minute
	// DocumentTTL is used for the whole-store entry.
	DocumentTTL = 30 * time.Second
	// SweepInterval is how often expired entries are physically removed.
	SweepInterval = 10 * time.Minute
)

// Cache wraps go-cache. An entry is a miss once its TTL has passed, even before the sweep
// removes it; a Get that observes an expired entry evicts it.
type Cache struct {
	items *gocache.Cache
	// mu orders writers against miss-eviction so an eviction never removes a fresh Set.
	mu sync.Mutex
}

func New() *Cache {
	return NewWithSweep(SweepInterval)
}

// NewWithSweep creates a cache whose janitor runs every interval (<= 0 disables it).
func NewWithSweep(interval time.Duration) *Cache {
	return &Cache{items: gocache.New(DefaultTTL, interval)}
}

func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	c.items.Set(key, value, ttl)
	c.mu.Unlock()
}

func (c *Cache) Get(key string) (any, bool) {
	if v, ok := c.items.Get(key); ok {
		return v, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// go-cache reports expired items as missing but keeps them until the janitor runs
	if v, ok := c.items.Get(key); ok {
		return v, true
	}
	c.items.Delete(key)
	return nil, false
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	c.items.Delete(key)
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.items.Flush()
	c.mu.Unlock()
}

// Sweep removes every expired entry now, independent of the janitor.
func (c *Cache) Sweep() {
	c.items.DeleteExpired()
}

// Len counts physically present entries, expired ones included.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}
