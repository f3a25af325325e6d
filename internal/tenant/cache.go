package tenant

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/adeptbill/internal/metrics"
)

// Static defaults.  Override via the `tenants` config section.
const (
	IdleTTL       = 0 // never expire on idle; invalidation is explicit
	MaxEntries    = 100
	EvictInterval = 5 * time.Minute
)

// LoadFunc loads the tenant behind a cache key.
type LoadFunc func(ctx context.Context, key string) (*Tenant, error)

// Cache lazily loads tenants, stores them in a sync.Map, and keeps them for
// the lifetime of the process until Invalidate is called.  An optional
// evictor drops idle entries and trims the map under LRU pressure.
type Cache struct {
	load       LoadFunc
	sfg        singleflight.Group
	m          sync.Map
	idleTTL    time.Duration
	maxEntries int

	stopOnce sync.Once
	stop     chan struct{}
}

// NewCache constructs a Cache.  When idleTTL or maxEntries is positive the
// background evictor starts; call Close to stop it.
func NewCache(load LoadFunc, idleTTL time.Duration, maxEntries int) *Cache {
	c := &Cache{
		load:       load,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	if idleTTL > 0 || maxEntries > 0 {
		go c.evictLoop(EvictInterval)
	}
	return c
}

// Get returns the Tenant for key, loading it on demand.  Concurrent misses
// for the same key share one load.  Failed loads are not cached.
func (c *Cache) Get(ctx context.Context, key string) (*Tenant, error) {
	if t, ok := c.lookup(key); ok {
		return t, nil
	}

	v, err, _ := c.sfg.Do(key, func() (any, error) {
		// Double-check after singleflight barrier.
		if t, ok := c.lookup(key); ok {
			return t, nil
		}
		// Waiters share this load; one caller going away must not fail
		// the rest.
		ten, err := c.load(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, err
		}
		c.m.Store(key, &entry{tenant: ten, lastSeen: time.Now().UnixNano()})
		metrics.TenantLoadTotal.Inc()
		metrics.ActiveTenants.Inc()
		zap.L().Info("tenant loaded",
			zap.String("key", key), zap.String("site", ten.Slug()))
		return ten, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tenant), nil
}

func (c *Cache) lookup(key string) (*Tenant, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return nil, false
	}
	ent := v.(*entry)
	atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
	return ent.tenant, true
}

// Invalidate drops every cached key serving the site with domain or slug
// equal to ident, plus ident itself used as a raw key.
func (c *Cache) Invalidate(ident string) int {
	var n int
	c.m.Range(func(key, value any) bool {
		t := value.(*entry).tenant
		if key == ident || t.Domain() == ident || t.Slug() == ident {
			c.m.Delete(key)
			n++
		}
		return true
	})
	c.dropped(n, ident)
	return n
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() int {
	var n int
	c.m.Range(func(key, _ any) bool {
		c.m.Delete(key)
		n++
		return true
	})
	c.dropped(n, "*")
	return n
}

func (c *Cache) dropped(n int, ident string) {
	if n == 0 {
		return
	}
	metrics.TenantEvictTotal.Add(float64(n))
	metrics.ActiveTenants.Sub(float64(n))
	zap.L().Info("tenant cache invalidated", zap.String("ident", ident), zap.Int("entries", n))
}

// Len reports the number of cached keys.
func (c *Cache) Len() int {
	var n int
	c.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Close stops the evictor.  The cache stays usable.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
