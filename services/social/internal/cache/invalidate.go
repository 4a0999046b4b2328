package cache

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/yond5413/pentagram/internal/platform/events"
)

// Invalidator drops keys from the local cache and tells other replicas to do
// the same over NATS. Without a connection it only clears locally.
type Invalidator struct {
	cache Cache
	nc    *nats.Conn
	log   *zap.Logger
}

func NewInvalidator(c Cache, nc *nats.Conn, log *zap.Logger) *Invalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Invalidator{cache: c, nc: nc, log: log}
}

// Invalidate never fails the caller; errors are logged.
func (i *Invalidator) Invalidate(ctx context.Context, keys ...string) {
	if i == nil || len(keys) == 0 {
		return
	}
	if i.cache != nil {
		if err := i.cache.Delete(ctx, keys...); err != nil {
			i.log.Warn("cache: invalidate failed", zap.Strings("keys", keys), zap.Error(err))
		}
	}
	if i.nc == nil {
		return
	}
	for _, k := range keys {
		if err := i.nc.Publish(events.SubjectCacheInvalidate, []byte(k)); err != nil {
			i.log.Warn("cache: broadcast failed", zap.String("key", k), zap.Error(err))
		}
	}
}

// Subscribe deletes keys announced by other replicas from c.
func Subscribe(nc *nats.Conn, c Cache, log *zap.Logger) (*nats.Subscription, error) {
	if log == nil {
		log = zap.NewNop()
	}
	return nc.Subscribe(events.SubjectCacheInvalidate, func(m *nats.Msg) {
		key := string(m.Data)
		if key == "" {
			return
		}
		if err := c.Delete(context.Background(), key); err != nil {
			log.Warn("cache: remote invalidate failed", zap.String("key", key), zap.Error(err))
		}
	})
}
