package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryPostStore is a development-only in-memory implementation.
type InMemoryPostStore struct {
	mu    sync.RWMutex
	posts map[string]Post
}

func NewInMemoryPostStore() *InMemoryPostStore {
	return &InMemoryPostStore{posts: make(map[string]Post)}
}

func (s *InMemoryPostStore) CreatePost(_ context.Context, p Post) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, ok := s.posts[p.ID]; ok {
		return Post{}, ErrDuplicate
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.posts[p.ID] = p
	return p, nil
}

func (s *InMemoryPostStore) GetPost(_ context.Context, id string) (Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, ErrNotFound
	}
	return p, nil
}

func (s *InMemoryPostStore) ListPublic(_ context.Context, since time.Time, limit int) ([]Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Post
	for _, p := range s.posts {
		if p.IsPublic && !p.IsDeleted && !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	return newestPosts(out, limit), nil
}

func (s *InMemoryPostStore) ListByUser(_ context.Context, userID string, includePrivate bool, limit int) ([]Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Post
	for _, p := range s.posts {
		if p.UserID == userID && !p.IsDeleted && (p.IsPublic || includePrivate) {
			out = append(out, p)
		}
	}
	return newestPosts(out, limit), nil
}

func newestPosts(out []Post, limit int) []Post {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *InMemoryPostStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok || p.IsDeleted {
		return ErrNotFound
	}
	p.IsDeleted = true
	s.posts[id] = p
	return nil
}

func (s *InMemoryPostStore) CountByUser(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.posts {
		if p.UserID == userID && !p.IsDeleted {
			n++
		}
	}
	return n, nil
}

type pair struct{ actor, target string }

// InMemoryRelationStore enforces the one-row-per-pair constraint under its lock.
type InMemoryRelationStore struct {
	mu   sync.RWMutex
	rows map[pair]time.Time
}

func NewInMemoryRelationStore() *InMemoryRelationStore {
	return &InMemoryRelationStore{rows: make(map[pair]time.Time)}
}

func (s *InMemoryRelationStore) Exists(_ context.Context, actorID, targetID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rows[pair{actorID, targetID}]
	return ok, nil
}

func (s *InMemoryRelationStore) Insert(_ context.Context, actorID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := pair{actorID, targetID}
	if _, ok := s.rows[k]; ok {
		return ErrDuplicate
	}
	s.rows[k] = time.Now().UTC()
	return nil
}

func (s *InMemoryRelationStore) Delete(_ context.Context, actorID, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := pair{actorID, targetID}
	if _, ok := s.rows[k]; !ok {
		return false, nil
	}
	delete(s.rows, k)
	return true, nil
}

func (s *InMemoryRelationStore) CountByTargets(_ context.Context, targetIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]struct{}, len(targetIDs))
	for _, id := range targetIDs {
		want[id] = struct{}{}
	}
	out := make(map[string]int, len(targetIDs))
	for k := range s.rows {
		if _, ok := want[k.target]; ok {
			out[k.target]++
		}
	}
	return out, nil
}

func (s *InMemoryRelationStore) CountByActor(_ context.Context, actorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.rows {
		if k.actor == actorID {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryRelationStore) TargetsOf(_ context.Context, actorID string, targetIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool)
	for _, id := range targetIDs {
		if _, ok := s.rows[pair{actorID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// InMemoryCommentStore is a development-only in-memory implementation.
type InMemoryCommentStore struct {
	mu       sync.RWMutex
	comments map[string]Comment
}

func NewInMemoryCommentStore() *InMemoryCommentStore {
	return &InMemoryCommentStore{comments: make(map[string]Comment)}
}

func (s *InMemoryCommentStore) CreateComment(_ context.Context, c Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.New().String()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.comments[c.ID] = c
	return c, nil
}

func (s *InMemoryCommentStore) GetComment(_ context.Context, id string) (Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrNotFound
	}
	return c, nil
}

func (s *InMemoryCommentStore) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *InMemoryCommentStore) ListByPost(_ context.Context, postID string) ([]Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryCommentStore) CountByPosts(_ context.Context, postIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]struct{}, len(postIDs))
	for _, id := range postIDs {
		want[id] = struct{}{}
	}
	out := make(map[string]int, len(postIDs))
	for _, c := range s.comments {
		if _, ok := want[c.PostID]; ok {
			out[c.PostID]++
		}
	}
	return out, nil
}

// InMemoryProfileStore keeps usernames unique case-insensitively, like the
// lower(username) index in Postgres.
type InMemoryProfileStore struct {
	mu         sync.RWMutex
	profiles   map[string]Profile
	byUsername map[string]string
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		profiles:   make(map[string]Profile),
		byUsername: make(map[string]string),
	}
}

func (s *InMemoryProfileStore) CreateProfile(_ context.Context, p Profile) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(p.Username)
	if _, ok := s.profiles[p.ID]; ok {
		return Profile{}, ErrDuplicate
	}
	if _, ok := s.byUsername[key]; ok {
		return Profile{}, ErrDuplicate
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.profiles[p.ID] = p
	s.byUsername[key] = p.ID
	return p, nil
}

func (s *InMemoryProfileStore) GetProfile(_ context.Context, id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *InMemoryProfileStore) GetByUsername(_ context.Context, username string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return s.profiles[id], nil
}

func (s *InMemoryProfileStore) GetProfiles(_ context.Context, ids []string) (map[string]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Profile, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// UpdateProfile overwrites the editable fields; username and creation time are kept.
func (s *InMemoryProfileStore) UpdateProfile(_ context.Context, p Profile) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.profiles[p.ID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	cur.DisplayName = p.DisplayName
	cur.AvatarURL = p.AvatarURL
	cur.Bio = p.Bio
	s.profiles[p.ID] = cur
	return cur, nil
}
