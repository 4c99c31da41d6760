// Package cache provides the in-process read cache owned by the connection
// manager.
//
// Cross-request order state lives only in the two external stores; the
// cache exists solely for the dashboard read path (recent-orders listing)
// and is invalidated on every successful persist. The write path never
// consults it.
package cache

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Cache is the read-cache connection handle managed by the connection
// manager. Ping mirrors the relational handle's liveness check so the
// status command can report both backends uniformly.
type Cache[V any] interface {
	Ping(ctx context.Context) error
	Get(key string) (V, bool)
	Set(key string, value V)
	Invalidate(key string)
	Clear()
}

// entry pairs a cached value with its expiry deadline.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLMap is a concurrent TTL cache over xsync.MapOf.
//
// Expired entries are dropped lazily on read; there is no background
// sweeper. Thread-safe for concurrent use.
type TTLMap[V any] struct {
	m   *xsync.MapOf[string, entry[V]]
	ttl time.Duration
	now func() time.Time
}

// NewTTLMap creates a cache whose entries expire after ttl.
func NewTTLMap[V any](ttl time.Duration) *TTLMap[V] {
	return &TTLMap[V]{
		m:   xsync.NewMapOf[string, entry[V]](),
		ttl: ttl,
		now: time.Now,
	}
}

// Ping implements Cache. The in-process cache has no remote connection to
// verify, so it always reports healthy.
func (c *TTLMap[V]) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Get returns the cached value for key if present and unexpired.
func (c *TTLMap[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.m.Load(key)
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.m.Delete(key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *TTLMap[V]) Set(key string, value V) {
	c.m.Store(key, entry[V]{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Invalidate drops the entry for key, if any.
func (c *TTLMap[V]) Invalidate(key string) {
	c.m.Delete(key)
}

// Clear drops every entry. Called after a successful persist so the next
// listing read observes the new order.
func (c *TTLMap[V]) Clear() {
	c.m.Clear()
}

// Nop is a disabled cache: every read misses, writes are dropped.
type Nop[V any] struct{}

func (Nop[V]) Ping(ctx context.Context) error { return ctx.Err() }

func (Nop[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}

func (Nop[V]) Set(string, V) {}

func (Nop[V]) Invalidate(string) {}

func (Nop[V]) Clear() {}
