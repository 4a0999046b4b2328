// Package service runs each social operation for one request: it reads rows
// from the store, hands them to the ranking, threading and toggle
// components, and keeps the record cache and event stream in step with
// writes. Counts are recomputed from rows on every read.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yond5413/pentagram/internal/platform/events"
	"github.com/yond5413/pentagram/services/social/internal/actor"
	"github.com/yond5413/pentagram/services/social/internal/cache"
	"github.com/yond5413/pentagram/services/social/internal/commenttree"
	"github.com/yond5413/pentagram/services/social/internal/domain"
	"github.com/yond5413/pentagram/services/social/internal/engagement"
	"github.com/yond5413/pentagram/services/social/internal/store"
	"github.com/yond5413/pentagram/services/social/internal/trending"
)

const (
	// FeedLimit is the number of posts on the home feed.
	FeedLimit = 20
	// UserPostsLimit is the default size of a profile's post gallery.
	UserPostsLimit = 50
)

// Author is the public summary of a profile attached to posts and comments.
type Author = commenttree.Author

type Options struct {
	Store store.Store
	// Cache holds post and profile rows; nil disables caching.
	Cache cache.Cache
	// Invalidator drops cached rows after writes; defaults to deleting from Cache.
	Invalidator engagement.Invalidator
	Events      engagement.Publisher
	Logger      *zap.Logger

	CandidateLimit int
	CommentLimit   int
	Now            func() time.Time
}

type Service struct {
	store   store.Store
	cache   cache.Cache
	inval   engagement.Invalidator
	events  engagement.Publisher
	toggler *engagement.Toggler
	log     *zap.Logger

	candidateLimit int
	commentLimit   int
	now            func() time.Time
}

func New(opts Options) *Service {
	s := &Service{
		store:          opts.Store,
		cache:          opts.Cache,
		inval:          opts.Invalidator,
		events:         opts.Events,
		log:            opts.Logger,
		candidateLimit: opts.CandidateLimit,
		commentLimit:   opts.CommentLimit,
		now:            opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.inval == nil && s.cache != nil {
		s.inval = cache.NewInvalidator(s.cache, nil, s.log)
	}
	if s.candidateLimit <= 0 {
		s.candidateLimit = trending.DefaultCandidateLimit
	}
	if s.commentLimit <= 0 {
		s.commentLimit = commenttree.DefaultLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.toggler = engagement.New(engagement.Config{
		Likes:   s.store.Likes,
		Follows: s.store.Follows,
		Targets: engagement.TargetFunc(s.checkTarget),
		Cache:   s.inval,
		Events:  s.events,
		Logger:  s.log,
	})
	return s
}

func requireActor(a actor.Actor) error {
	if !a.Present() {
		return domain.ErrUnauthorized
	}
	return nil
}

// storeErr maps store sentinels onto the domain taxonomy and wraps the rest.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return domain.ErrNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.inval != nil {
		s.inval.Invalidate(ctx, keys...)
	}
}

func (s *Service) publish(subject, actorID, targetID string, props map[string]any) {
	if s.events != nil {
		s.events.Publish(subject, events.NewEvent(subject, actorID, targetID, props))
	}
}

func (s *Service) authors(ctx context.Context, userIDs []string) (map[string]store.Profile, error) {
	seen := make(map[string]struct{}, len(userIDs))
	ids := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	profiles, err := s.store.Profiles.GetProfiles(ctx, ids)
	if err != nil {
		return nil, storeErr("load authors", err)
	}
	return profiles, nil
}

func authorOf(profiles map[string]store.Profile, userID string) *Author {
	p, ok := profiles[userID]
	if !ok {
		return nil
	}
	return toAuthor(p)
}

func toAuthor(p store.Profile) *Author {
	return &Author{ID: p.ID, Username: p.Username, DisplayName: p.DisplayName, AvatarURL: p.AvatarURL}
}
