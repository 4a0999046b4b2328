package events

import (
	"testing"
	"time"
)

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	p.Publish(SubjectLiked, NewEvent("liked", "u1", "p1", nil))

	New(nil, nil).Publish(SubjectLiked, NewEvent("liked", "u1", "p1", nil))
}

func TestNewEvent(t *testing.T) {
	before := time.Now().UTC()
	ev := NewEvent("followed", "u1", "u2", map[string]any{"kind": "follow"})
	if ev.EventID == "" {
		t.Fatal("expected event id")
	}
	if ev.ActorID != "u1" || ev.TargetID != "u2" {
		t.Fatalf("unexpected ids: %+v", ev)
	}
	if ev.OccurredAt.Before(before) {
		t.Fatal("occurred_at should be stamped at creation")
	}
}
