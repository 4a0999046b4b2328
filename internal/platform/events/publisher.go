// Package events publishes social engagement events to NATS JetStream.
// Publishing is fire-and-forget: failures are logged and never reach the
// caller, because a lost event must not fail the write that produced it.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Stream and subject names for every social event type.
const (
	StreamName = "SOCIAL"

	SubjectLiked          = "social.engagement.liked"
	SubjectUnliked        = "social.engagement.unliked"
	SubjectFollowed       = "social.engagement.followed"
	SubjectUnfollowed     = "social.engagement.unfollowed"
	SubjectCommentCreated = "social.comments.created"
	SubjectCommentDeleted = "social.comments.deleted"
	SubjectPostDeleted    = "social.posts.deleted"

	// SubjectCacheInvalidate carries a single cache key to drop.
	SubjectCacheInvalidate = "social.cache.invalidate"
)

// StreamSubjects are persisted in StreamName. Cache invalidations are core
// NATS only and stay out of the stream.
var StreamSubjects = []string{"social.engagement.>", "social.comments.>", "social.posts.>"}

// Event is the canonical envelope sent to all social.* subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	ActorID    string         `json:"actor_id,omitempty"`
	TargetID   string         `json:"target_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Publisher publishes events to NATS JetStream.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js  nats.JetStreamContext
	log *zap.Logger
}

// New creates a Publisher using an existing JetStream context.
// Pass js=nil to get a no-op stub (useful in tests and services without NATS).
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log}
}

// NewEvent stamps a fresh envelope.
func NewEvent(name, actorID, targetID string, props map[string]any) Event {
	return Event{
		EventID:    uuid.NewString(),
		EventName:  name,
		ActorID:    actorID,
		TargetID:   targetID,
		OccurredAt: time.Now().UTC(),
		Properties: props,
	}
}

// Publish sends ev asynchronously on subject.
func (p *Publisher) Publish(subject string, ev Event) {
	if p == nil || p.js == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("event", ev.EventName), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data, nats.MsgId(ev.EventID)); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
