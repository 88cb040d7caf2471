// Package statscache caches expensive reporting aggregates. Write paths
// invalidate whole categories so dashboards never serve figures older than
// the last mutation plus the TTL.
package statscache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Category groups cache keys by the data they derive from, so a write to one
// area of the system flushes only the stats it can affect.
type Category string

const (
	CategoryRevenue      Category = "revenue"
	CategoryPatients     Category = "patients"
	CategoryAppointments Category = "appointments"
	CategoryOccupancy    Category = "occupancy"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is a TTL cache keyed by (category, key). The clock is injected so
// expiry is testable without sleeping.
type Cache struct {
	store *gocache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache with the given TTL. A nil now falls back to time.Now.
func New(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	// Expiry is checked against the injected clock, so the underlying store
	// keeps items forever and eviction happens on Invalidate or replacement.
	return &Cache{
		store: gocache.New(gocache.NoExpiration, 0),
		ttl:   ttl,
		now:   now,
	}
}

// Get returns the cached value for (category, key) if it has not expired.
func (c *Cache) Get(category Category, key string) (interface{}, bool) {
	v, ok := c.store.Get(c.key(category, key))
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if c.now().After(e.expiresAt) {
		c.store.Delete(c.key(category, key))
		return nil, false
	}
	return e.value, true
}

// Set stores a value under (category, key) for the cache TTL.
func (c *Cache) Set(category Category, key string, value interface{}) {
	c.store.Set(c.key(category, key), entry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}, gocache.NoExpiration)
}

// Invalidate drops every key in the category. Called by write paths after a
// successful mutation.
func (c *Cache) Invalidate(categories ...Category) {
	for k := range c.store.Items() {
		for _, category := range categories {
			if strings.HasPrefix(k, string(category)+":") {
				c.store.Delete(k)
			}
		}
	}
}

// Flush empties the cache entirely.
func (c *Cache) Flush() {
	c.store.Flush()
}

func (c *Cache) key(category Category, key string) string {
	return string(category) + ":" + key
}
