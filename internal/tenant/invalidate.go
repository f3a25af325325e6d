// internal/tenant/invalidate.go
//
// Cross-process cache invalidation.
//
// Context
// -------
// Each worker process keeps its own Cache.  When an operator edits or
// suspends a site, `adeptctl invalidate-site` publishes the site's domain
// or slug on a Redis channel; every worker runs Listen and drops the
// matching entries.  The payload "*" empties the whole cache.

package tenant

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// InvalidateAllPayload empties every worker's cache.
const InvalidateAllPayload = "*"

// Invalidator publishes and consumes invalidation messages.
type Invalidator struct {
	rdb     *redis.Client
	channel string
}

// NewInvalidator wraps a Redis client and channel name.
func NewInvalidator(rdb *redis.Client, channel string) *Invalidator {
	return &Invalidator{rdb: rdb, channel: channel}
}

// Publish announces that ident (domain, slug, or "*") changed.
func (inv *Invalidator) Publish(ctx context.Context, ident string) error {
	return inv.rdb.Publish(ctx, inv.channel, ident).Err()
}

// Listen applies messages to cache until ctx is cancelled.  ready, when
// non-nil, is closed once the subscription is confirmed.
func (inv *Invalidator) Listen(ctx context.Context, cache *Cache, ready chan<- struct{}) error {
	sub := inv.rdb.Subscribe(ctx, inv.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}
	zap.L().Info("tenant invalidation listener online", zap.String("channel", inv.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == InvalidateAllPayload {
				cache.InvalidateAll()
				continue
			}
			cache.Invalidate(msg.Payload)
		}
	}
}
