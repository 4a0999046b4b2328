// Package engagement flips like and follow relations for an actor.
//
// A toggle is check-then-act against the relation store: look the pair up,
// then delete or insert it. Two racing toggles can both see the same state;
// the store's unique (actor, target) constraint rejects the second insert and
// that rejection is absorbed here as a no-op. A delete that finds nothing is
// equally harmless, so a duplicate retry never leaves more than one row.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yond5413/pentagram/internal/platform/events"
	"github.com/yond5413/pentagram/internal/platform/metrics"
	"github.com/yond5413/pentagram/services/social/internal/actor"
	"github.com/yond5413/pentagram/services/social/internal/cache"
	"github.com/yond5413/pentagram/services/social/internal/domain"
	"github.com/yond5413/pentagram/services/social/internal/store"
)

// Kind names the relation a toggle flips.
type Kind string

const (
	Like   Kind = "like"
	Follow Kind = "follow"
)

// State is whether the relation exists after a toggle.
type State string

const (
	Active   State = "active"
	Inactive State = "inactive"
)

// Result is the outcome of one toggle.
type Result struct {
	State State `json:"state"`
	// Fresh is true when this call inserted or removed the row itself.
	Fresh bool `json:"-"`
	// Conflict is true when a concurrent toggle had already produced the
	// final state (domain.ErrConflictIgnored).
	Conflict bool `json:"-"`
}

func (r Result) Active() bool { return r.State == Active }

// TargetChecker reports domain.ErrNotFound when the target of a toggle does
// not exist or is not visible to the actor.
type TargetChecker interface {
	CheckTarget(ctx context.Context, a actor.Actor, kind Kind, targetID string) error
}

// TargetFunc adapts a function to TargetChecker.
type TargetFunc func(ctx context.Context, a actor.Actor, kind Kind, targetID string) error

func (f TargetFunc) CheckTarget(ctx context.Context, a actor.Actor, kind Kind, targetID string) error {
	return f(ctx, a, kind, targetID)
}

// Invalidator drops cache keys after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

// Publisher announces a completed toggle.
type Publisher interface {
	Publish(subject string, ev events.Event)
}

// Config wires a Toggler to its stores and side effects; Cache, Events and Logger are optional.
type Config struct {
	Likes   store.RelationStore
	Follows store.RelationStore
	Targets TargetChecker
	Cache   Invalidator
	Events  Publisher
	Logger  *zap.Logger
}

// Toggler flips like and follow relations. It is safe for concurrent use.
type Toggler struct {
	relations map[Kind]store.RelationStore
	targets   TargetChecker
	cache     Invalidator
	events    Publisher
	log       *zap.Logger
}

// New builds a Toggler from cfg.
func New(cfg Config) *Toggler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Toggler{
		relations: map[Kind]store.RelationStore{Like: cfg.Likes, Follow: cfg.Follows},
		targets:   cfg.Targets,
		cache:     cfg.Cache,
		events:    cfg.Events,
		log:       log,
	}
}

// Toggle flips the (actor, target) relation of kind and returns the new state.
func (t *Toggler) Toggle(ctx context.Context, a actor.Actor, targetID string, kind Kind) (Result, error) {
	if !a.Present() {
		return Result{}, domain.ErrUnauthorized
	}
	rel, ok := t.relations[kind]
	if !ok || rel == nil {
		return Result{}, domain.Invalid("kind", fmt.Sprintf("unknown engagement kind %q", kind))
	}
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return Result{}, domain.ErrNotFound
	}
	if kind == Follow && a.Is(targetID) {
		return Result{}, domain.ErrSelfReference
	}
	if t.targets != nil {
		if err := t.targets.CheckTarget(ctx, a, kind, targetID); err != nil {
			return Result{}, err
		}
	}

	exists, err := rel.Exists(ctx, a.ID(), targetID)
	if err != nil {
		return Result{}, fmt.Errorf("lookup %s: %w", kind, err)
	}

	var res Result
	if exists {
		res, err = t.deactivate(ctx, rel, a, targetID, kind)
	} else {
		res, err = t.activate(ctx, rel, a, targetID, kind)
	}
	if err != nil {
		return Result{}, err
	}

	metrics.EngagementToggles.WithLabelValues(string(kind), string(res.State)).Inc()
	if res.Fresh {
		t.afterWrite(ctx, a, targetID, kind, res.State)
	}
	return res, nil
}

func (t *Toggler) activate(ctx context.Context, rel store.RelationStore, a actor.Actor, targetID string, kind Kind) (Result, error) {
	err := rel.Insert(ctx, a.ID(), targetID)
	switch {
	case err == nil:
		return Result{State: Active, Fresh: true}, nil
	case errors.Is(err, store.ErrDuplicate):
		metrics.EngagementConflicts.WithLabelValues(string(kind), "insert").Inc()
		t.log.Debug("engagement: duplicate insert absorbed",
			zap.String("kind", string(kind)),
			zap.String("actor_id", a.ID()),
			zap.String("target_id", targetID),
			zap.NamedError("reason", domain.ErrConflictIgnored),
		)
		return Result{State: Active, Conflict: true}, nil
	case errors.Is(err, store.ErrNotFound):
		// The target vanished between the check and the insert.
		return Result{}, domain.ErrNotFound
	default:
		return Result{}, fmt.Errorf("insert %s: %w", kind, err)
	}
}

func (t *Toggler) deactivate(ctx context.Context, rel store.RelationStore, a actor.Actor, targetID string, kind Kind) (Result, error) {
	deleted, err := rel.Delete(ctx, a.ID(), targetID)
	if err != nil {
		return Result{}, fmt.Errorf("delete %s: %w", kind, err)
	}
	if !deleted {
		metrics.EngagementConflicts.WithLabelValues(string(kind), "delete").Inc()
		t.log.Debug("engagement: delete affected no rows",
			zap.String("kind", string(kind)),
			zap.String("actor_id", a.ID()),
			zap.String("target_id", targetID),
		)
		return Result{State: Inactive, Conflict: true}, nil
	}
	return Result{State: Inactive, Fresh: true}, nil
}

// afterWrite drops cache entries keyed on the post or profiles involved and
// announces the change. Neither step can fail the toggle.
func (t *Toggler) afterWrite(ctx context.Context, a actor.Actor, targetID string, kind Kind, state State) {
	var keys []string
	var subject string
	switch kind {
	case Like:
		keys = []string{cache.PostKey(targetID)}
		subject = events.SubjectUnliked
		if state == Active {
			subject = events.SubjectLiked
		}
	case Follow:
		keys = []string{cache.ProfileKey(targetID), cache.ProfileKey(a.ID())}
		subject = events.SubjectUnfollowed
		if state == Active {
			subject = events.SubjectFollowed
		}
	}

	if t.cache != nil {
		t.cache.Invalidate(ctx, keys...)
	}
	if t.events != nil {
		t.events.Publish(subject, events.NewEvent(subject, a.ID(), targetID, map[string]any{"kind": string(kind)}))
	}
	t.log.Info("engagement: toggled",
		zap.String("kind", string(kind)),
		zap.String("state", string(state)),
		zap.String("actor_id", a.ID()),
		zap.String("target_id", targetID),
	)
}
