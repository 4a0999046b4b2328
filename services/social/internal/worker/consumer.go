// Package worker consumes social events from JetStream and replays their
// cache invalidations, so an entry dropped on one replica's write
// path is also dropped everywhere else even if the synchronous
// invalidation was lost.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/yond5413/pentagram/internal/platform/events"
	"github.com/yond5413/pentagram/services/social/internal/cache"
	"github.com/yond5413/pentagram/services/social/internal/engagement"
)

const DurableName = "social_aggregates"

type Options struct {
	BatchSize int
	MaxWait   time.Duration
}

type Consumer struct {
	inval engagement.Invalidator
	dedup Deduper
	log   *zap.Logger
	opts  Options
}

func NewConsumer(inval engagement.Invalidator, dedup Deduper, log *zap.Logger, opts Options) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	if dedup == nil {
		dedup = NewMemoryDeduper(0)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 2 * time.Second
	}
	return &Consumer{inval: inval, dedup: dedup, log: log, opts: opts}
}

// Run pulls batches until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, js nats.JetStreamContext) error {
	sub, err := js.PullSubscribe("", DurableName, nats.BindStream(events.StreamName))
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	c.log.Info("worker: consuming", zap.String("durable", DurableName))
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(c.opts.BatchSize, nats.MaxWait(c.opts.MaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			c.log.Warn("worker: fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, m := range msgs {
			if err := c.Process(ctx, m.Subject, m.Data); err != nil {
				c.log.Warn("worker: process failed", zap.String("subject", m.Subject), zap.Error(err))
				if err := m.Nak(); err != nil {
					c.log.Warn("worker: nak failed", zap.Error(err))
				}
				continue
			}
			if err := m.Ack(); err != nil {
				c.log.Warn("worker: ack failed", zap.Error(err))
			}
		}
	}
}

// Process handles one event. Malformed payloads are dropped rather than
// redelivered; a dedup store failure is returned so the message is retried.
func (c *Consumer) Process(ctx context.Context, subject string, data []byte) error {
	var ev events.Event
	if err := json.Unmarshal(data, &ev); err != nil || ev.EventID == "" {
		c.log.Warn("worker: dropping malformed event", zap.String("subject", subject))
		return nil
	}

	dup, err := c.dedup.Check(ctx, ev.EventID)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if dup {
		c.log.Debug("worker: duplicate event", zap.String("event_id", ev.EventID))
		return nil
	}

	keys := KeysFor(subject, ev)
	if len(keys) > 0 && c.inval != nil {
		c.inval.Invalidate(ctx, keys...)
	}
	return nil
}

// KeysFor lists the cache keys an event touches.
func KeysFor(subject string, ev events.Event) []string {
	switch subject {
	case events.SubjectLiked, events.SubjectUnliked:
		return []string{cache.PostKey(ev.TargetID)}
	case events.SubjectFollowed, events.SubjectUnfollowed:
		return []string{cache.ProfileKey(ev.TargetID), cache.ProfileKey(ev.ActorID)}
	case events.SubjectCommentCreated, events.SubjectCommentDeleted:
		if postID, _ := ev.Properties["post_id"].(string); strings.TrimSpace(postID) != "" {
			return []string{cache.PostKey(postID)}
		}
	case events.SubjectPostDeleted:
		return []string{cache.PostKey(ev.TargetID), cache.ProfileKey(ev.ActorID)}
	}
	return nil
}
