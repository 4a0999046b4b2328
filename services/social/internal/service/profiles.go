package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yond5413/pentagram/services/social/internal/actor"
	"github.com/yond5413/pentagram/services/social/internal/cache"
	"github.com/yond5413/pentagram/services/social/internal/domain"
	"github.com/yond5413/pentagram/services/social/internal/store"
)

type ProfileView struct {
	store.Profile
	PostCount      int  `json:"post_count"`
	FollowerCount  int  `json:"follower_count"`
	FollowingCount int  `json:"following_count"`
	IsFollowing    bool `json:"is_following"`
	IsOwn          bool `json:"is_own_profile"`
}

type ProfileInput struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	Bio         *string `json:"bio"`
}

// EnsureProfile creates the actor's profile at signup. It is idempotent:
// an actor that already has a profile gets it back unchanged.
func (s *Service) EnsureProfile(ctx context.Context, a actor.Actor, in ProfileInput) (ProfileView, error) {
	if err := requireActor(a); err != nil {
		return ProfileView{}, err
	}
	if existing, err := s.store.Profiles.GetProfile(ctx, a.ID()); err == nil {
		return s.profileView(ctx, a, existing)
	} else if !errors.Is(err, store.ErrNotFound) {
		return ProfileView{}, storeErr("get profile", err)
	}

	username, err := domain.NormalizeUsername(in.Username)
	if err != nil {
		return ProfileView{}, err
	}
	display, err := domain.NormalizeProfileText("display_name", in.DisplayName, domain.MaxDisplayNameLength)
	if err != nil {
		return ProfileView{}, err
	}
	if display == "" {
		display = username
	}
	bio, err := domain.NormalizeProfileText("bio", in.Bio, domain.MaxBioLength)
	if err != nil {
		return ProfileView{}, err
	}

	p, err := s.store.Profiles.CreateProfile(ctx, store.Profile{
		ID:          a.ID(),
		Username:    username,
		DisplayName: display,
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
		Bio:         bio,
	})
	if errors.Is(err, store.ErrDuplicate) {
		// A concurrent signup for the same actor may have won the insert.
		if existing, gerr := s.store.Profiles.GetProfile(ctx, a.ID()); gerr == nil {
			return s.profileView(ctx, a, existing)
		}
		return ProfileView{}, fmt.Errorf("%w: username already taken", domain.ErrConflict)
	}
	if err != nil {
		return ProfileView{}, storeErr("create profile", err)
	}
	return s.profileView(ctx, a, p)
}

// GetProfile returns a profile by username with its counts.
func (s *Service) GetProfile(ctx context.Context, a actor.Actor, username string) (ProfileView, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return ProfileView{}, domain.ErrNotFound
	}
	p, err := s.store.Profiles.GetByUsername(ctx, username)
	if err != nil {
		return ProfileView{}, storeErr("get profile", err)
	}
	return s.profileView(ctx, a, p)
}

// UpdateProfile edits the actor's own display name, avatar and bio.
func (s *Service) UpdateProfile(ctx context.Context, a actor.Actor, in ProfileUpdate) (ProfileView, error) {
	if err := requireActor(a); err != nil {
		return ProfileView{}, err
	}
	p, err := s.store.Profiles.GetProfile(ctx, a.ID())
	if err != nil {
		return ProfileView{}, storeErr("get profile", err)
	}
	if in.DisplayName != nil {
		if p.DisplayName, err = domain.NormalizeProfileText("display_name", *in.DisplayName, domain.MaxDisplayNameLength); err != nil {
			return ProfileView{}, err
		}
	}
	if in.Bio != nil {
		if p.Bio, err = domain.NormalizeProfileText("bio", *in.Bio, domain.MaxBioLength); err != nil {
			return ProfileView{}, err
		}
	}
	if in.AvatarURL != nil {
		p.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}

	updated, err := s.store.Profiles.UpdateProfile(ctx, p)
	if err != nil {
		return ProfileView{}, storeErr("update profile", err)
	}
	s.invalidate(ctx, cache.ProfileKey(a.ID()))
	return s.profileView(ctx, a, updated)
}

// profile returns a profile row by user id through the cache.
func (s *Service) profile(ctx context.Context, userID string) (store.Profile, error) {
	return cache.Load(ctx, s.cache, s.log, cache.ProfileKey(userID), func(ctx context.Context) (store.Profile, error) {
		p, err := s.store.Profiles.GetProfile(ctx, userID)
		return p, storeErr("get profile", err)
	})
}

// profileView attaches counts read from current rows and the actor's flags.
func (s *Service) profileView(ctx context.Context, a actor.Actor, p store.Profile) (ProfileView, error) {
	posts, err := s.store.Posts.CountByUser(ctx, p.ID)
	if err != nil {
		return ProfileView{}, storeErr("count posts", err)
	}
	followers, err := s.store.Follows.CountByTargets(ctx, []string{p.ID})
	if err != nil {
		return ProfileView{}, storeErr("count followers", err)
	}
	following, err := s.store.Follows.CountByActor(ctx, p.ID)
	if err != nil {
		return ProfileView{}, storeErr("count following", err)
	}

	view := ProfileView{
		Profile:        p,
		PostCount:      posts,
		FollowerCount:  followers[p.ID],
		FollowingCount: following,
		IsOwn:          a.Is(p.ID),
	}
	if a.Present() && !view.IsOwn {
		if view.IsFollowing, err = s.store.Follows.Exists(ctx, a.ID(), p.ID); err != nil {
			return ProfileView{}, storeErr("load follow", err)
		}
	}
	return view, nil
}
