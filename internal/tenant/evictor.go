// evictor.go houses the eviction loop for Cache.  Every interval it scans
// the map and removes:
//
//   - tenants idle longer than idleTTL (when idleTTL > 0)
//   - least-recently-used tenants when map size exceeds maxEntries
//
// Each eviction event is logged and updates Prometheus counters.  Pools are
// owned by the database registry and stay open; only the cache entry goes.
package tenant

import (
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adeptbill/internal/metrics"
)

func (c *Cache) evictLoop(interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-tick.C:
			c.evictOnce(time.Now())
		}
	}
}

func (c *Cache) evictOnce(now time.Time) {
	var count int

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	c.m.Range(func(key, value any) bool {
		ent := value.(*entry)
		idle := now.Sub(time.Unix(0, atomic.LoadInt64(&ent.lastSeen)))
		if c.idleTTL > 0 && idle > c.idleTTL {
			c.m.Delete(key)
			zap.L().Info("tenant evicted",
				zap.Any("key", key), zap.Duration("idle", idle.Truncate(time.Second)))
			metrics.TenantEvictTotal.Inc()
			metrics.ActiveTenants.Dec()
			return true
		}
		count++
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if c.maxEntries <= 0 || count <= c.maxEntries {
		return
	}
	type kv struct {
		key string
		at  int64
	}
	all := make([]kv, 0, count)
	c.m.Range(func(key, value any) bool {
		all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&value.(*entry).lastSeen)})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
	for i := 0; i < len(all)-c.maxEntries; i++ {
		if _, ok := c.m.LoadAndDelete(all[i].key); ok {
			zap.L().Info("tenant evicted (LRU pressure)", zap.String("key", all[i].key))
			metrics.TenantEvictTotal.Inc()
			metrics.ActiveTenants.Dec()
		}
	}
}
