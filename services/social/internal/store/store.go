// Package store persists posts, engagement relations, comments and profiles.
// Every store has an in-memory implementation for development and tests and
// a Postgres implementation for production.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate")
)

type Post struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	ImageURL       string    `json:"image_url"`
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt,omitempty"`
	ModelName      string    `json:"model_name,omitempty"`
	Steps          int       `json:"steps,omitempty"`
	Guidance       float64   `json:"guidance,omitempty"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	IsPublic       bool      `json:"is_public"`
	IsDeleted      bool      `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	ParentID  *string   `json:"parent_comment_id,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type PostStore interface {
	CreatePost(ctx context.Context, p Post) (Post, error)
	GetPost(ctx context.Context, id string) (Post, error)
	// ListPublic returns public, non-deleted posts created at or after since,
	// newest first.
	ListPublic(ctx context.Context, since time.Time, limit int) ([]Post, error)
	// ListByUser returns a user's non-deleted posts newest first; private
	// posts are included only when includePrivate is set.
	ListByUser(ctx context.Context, userID string, includePrivate bool, limit int) ([]Post, error)
	SoftDelete(ctx context.Context, id string) error
	CountByUser(ctx context.Context, userID string) (int, error)
}

// RelationStore holds one kind of (actor, target) engagement pair. At most
// one row exists per pair; Insert of an existing pair returns ErrDuplicate.
type RelationStore interface {
	Exists(ctx context.Context, actorID, targetID string) (bool, error)
	Insert(ctx context.Context, actorID, targetID string) error
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, actorID, targetID string) (bool, error)
	CountByTargets(ctx context.Context, targetIDs []string) (map[string]int, error)
	CountByActor(ctx context.Context, actorID string) (int, error)
	// TargetsOf returns which of targetIDs the actor is engaged with.
	TargetsOf(ctx context.Context, actorID string, targetIDs []string) (map[string]bool, error)
}

type CommentStore interface {
	CreateComment(ctx context.Context, c Comment) (Comment, error)
	GetComment(ctx context.Context, id string) (Comment, error)
	// DeleteComment hard-deletes one row. Replies are left in place.
	DeleteComment(ctx context.Context, id string) error
	// ListByPost returns every comment of the post, oldest first.
	ListByPost(ctx context.Context, postID string) ([]Comment, error)
	CountByPosts(ctx context.Context, postIDs []string) (map[string]int, error)
}

type ProfileStore interface {
	CreateProfile(ctx context.Context, p Profile) (Profile, error)
	GetProfile(ctx context.Context, id string) (Profile, error)
	GetByUsername(ctx context.Context, username string) (Profile, error)
	GetProfiles(ctx context.Context, ids []string) (map[string]Profile, error)
	UpdateProfile(ctx context.Context, p Profile) (Profile, error)
}

// Store groups the collaborators the service reads and writes.
type Store struct {
	Posts    PostStore
	Likes    RelationStore
	Follows  RelationStore
	Comments CommentStore
	Profiles ProfileStore
}

// NewInMemory returns a Store whose data lives in process memory.
func NewInMemory() Store {
	return Store{
		Posts:    NewInMemoryPostStore(),
		Likes:    NewInMemoryRelationStore(),
		Follows:  NewInMemoryRelationStore(),
		Comments: NewInMemoryCommentStore(),
		Profiles: NewInMemoryProfileStore(),
	}
}
