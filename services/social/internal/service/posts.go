package service

import (
	"context"
	"strings"
	"time"

	"github.com/yond5413/pentagram/internal/platform/events"
	"github.com/yond5413/pentagram/internal/platform/metrics"
	"github.com/yond5413/pentagram/services/social/internal/actor"
	"github.com/yond5413/pentagram/services/social/internal/cache"
	"github.com/yond5413/pentagram/services/social/internal/domain"
	"github.com/yond5413/pentagram/services/social/internal/engagement"
	"github.com/yond5413/pentagram/services/social/internal/store"
	"github.com/yond5413/pentagram/services/social/internal/trending"
)

// PostView is a post with counts recomputed from current rows.
type PostView struct {
	store.Post
	Author       *Author `json:"author"`
	LikeCount    int     `json:"like_count"`
	CommentCount int     `json:"comment_count"`
	UserHasLiked bool    `json:"user_has_liked"`
	IsOwner      bool    `json:"is_owner"`
}

type TrendingPost struct {
	PostView
	TrendingScore float64 `json:"trending_score"`
}

// postRecord is the cached part of a post: its row and deletion state.
// Counts are never cached.
type postRecord struct {
	Post    store.Post `json:"post"`
	Deleted bool       `json:"deleted"`
}

type CreatePostInput struct {
	ImageURL       string  `json:"image_url"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	ModelName      string  `json:"model_name"`
	Steps          int     `json:"steps"`
	Guidance       float64 `json:"guidance"`
	AspectRatio    string  `json:"aspect_ratio"`
	IsPublic       *bool   `json:"is_public"`
}

func visible(p store.Post, a actor.Actor) bool {
	return (p.IsPublic && !p.IsDeleted) || a.Is(p.UserID)
}

// Explore ranks public posts from the period by trending score.
func (s *Service) Explore(ctx context.Context, a actor.Actor, period string) ([]TrendingPost, error) {
	window := trending.ParseWindow(period)
	now := s.now()

	posts, err := s.store.Posts.ListPublic(ctx, window.Since(now), s.candidateLimit)
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	metrics.TrendingCandidates.Observe(float64(len(posts)))

	views, err := s.decorate(ctx, a, posts)
	if err != nil {
		return nil, err
	}
	ranked := trending.Rank(views, func(v PostView) trending.Signals {
		return trending.Signals{
			ID:        v.ID,
			CreatedAt: v.CreatedAt,
			Likes:     float64(v.LikeCount),
			Comments:  float64(v.CommentCount),
		}
	}, window, now, s.candidateLimit)

	out := make([]TrendingPost, len(ranked))
	for i, r := range ranked {
		out[i] = TrendingPost{PostView: r.Item, TrendingScore: r.Score}
	}
	return out, nil
}

// Feed returns the newest public posts.
func (s *Service) Feed(ctx context.Context, a actor.Actor) ([]PostView, error) {
	posts, err := s.store.Posts.ListPublic(ctx, time.Unix(0, 0).UTC(), FeedLimit)
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	return s.decorate(ctx, a, posts)
}

// decorate attaches authors, counts and the actor's like flag in batches.
func (s *Service) decorate(ctx context.Context, a actor.Actor, posts []store.Post) ([]PostView, error) {
	out := make([]PostView, 0, len(posts))
	if len(posts) == 0 {
		return out, nil
	}
	ids := make([]string, len(posts))
	owners := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		owners[i] = p.UserID
	}

	likes, err := s.store.Likes.CountByTargets(ctx, ids)
	if err != nil {
		return nil, storeErr("count likes", err)
	}
	comments, err := s.store.Comments.CountByPosts(ctx, ids)
	if err != nil {
		return nil, storeErr("count comments", err)
	}
	profiles, err := s.authors(ctx, owners)
	if err != nil {
		return nil, err
	}
	liked := map[string]bool{}
	if a.Present() {
		if liked, err = s.store.Likes.TargetsOf(ctx, a.ID(), ids); err != nil {
			return nil, storeErr("load likes", err)
		}
	}

	for _, p := range posts {
		out = append(out, PostView{
			Post:         p,
			Author:       authorOf(profiles, p.UserID),
			LikeCount:    likes[p.ID],
			CommentCount: comments[p.ID],
			UserHasLiked: liked[p.ID],
			IsOwner:      a.Is(p.UserID),
		})
	}
	return out, nil
}

func (s *Service) postRecord(ctx context.Context, postID string) (store.Post, error) {
	rec, err := cache.Load(ctx, s.cache, s.log, cache.PostKey(postID), func(ctx context.Context) (postRecord, error) {
		p, err := s.store.Posts.GetPost(ctx, postID)
		if err != nil {
			return postRecord{}, storeErr("get post", err)
		}
		return postRecord{Post: p, Deleted: p.IsDeleted}, nil
	})
	if err != nil {
		return store.Post{}, err
	}
	rec.Post.IsDeleted = rec.Deleted
	return rec.Post, nil
}

// visiblePost loads a post and hides it from everyone but its owner when it
// is private or deleted.
func (s *Service) visiblePost(ctx context.Context, a actor.Actor, postID string) (store.Post, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return store.Post{}, domain.ErrNotFound
	}
	p, err := s.postRecord(ctx, postID)
	if err != nil {
		return store.Post{}, err
	}
	if !visible(p, a) {
		return store.Post{}, domain.ErrNotFound
	}
	return p, nil
}

// engageablePost is visiblePost for likes and comments, which nobody can
// add to a deleted post, its owner included.
func (s *Service) engageablePost(ctx context.Context, a actor.Actor, postID string) (store.Post, error) {
	p, err := s.visiblePost(ctx, a, postID)
	if err != nil {
		return store.Post{}, err
	}
	if p.IsDeleted {
		return store.Post{}, domain.ErrNotFound
	}
	return p, nil
}

// GetPost returns one post with its author, counts and the actor's flags.
func (s *Service) GetPost(ctx context.Context, a actor.Actor, postID string) (PostView, error) {
	p, err := s.visiblePost(ctx, a, postID)
	if err != nil {
		return PostView{}, err
	}
	views, err := s.decorate(ctx, a, []store.Post{p})
	if err != nil {
		return PostView{}, err
	}
	return views[0], nil
}

// UserPosts lists a user's live posts newest first. Private posts appear
// only to their owner.
func (s *Service) UserPosts(ctx context.Context, a actor.Actor, username string, limit int) ([]PostView, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrNotFound
	}
	if limit <= 0 {
		limit = UserPostsLimit
	}
	owner, err := s.store.Profiles.GetByUsername(ctx, username)
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	posts, err := s.store.Posts.ListByUser(ctx, owner.ID, a.Is(owner.ID), limit)
	if err != nil {
		return nil, storeErr("list user posts", err)
	}
	return s.decorate(ctx, a, posts)
}

// CreatePost records a generated image for the actor.
func (s *Service) CreatePost(ctx context.Context, a actor.Actor, in CreatePostInput) (PostView, error) {
	if err := requireActor(a); err != nil {
		return PostView{}, err
	}
	prompt, err := domain.NormalizePrompt(in.Prompt)
	if err != nil {
		return PostView{}, err
	}
	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		return PostView{}, domain.Invalid("image_url", "image_url is required")
	}
	if in.Steps < 0 || in.Guidance < 0 {
		return PostView{}, domain.Invalid("steps", "steps and guidance must not be negative")
	}
	width, height := domain.Dimensions(in.AspectRatio)
	public := true
	if in.IsPublic != nil {
		public = *in.IsPublic
	}

	p, err := s.store.Posts.CreatePost(ctx, store.Post{
		UserID:         a.ID(),
		ImageURL:       imageURL,
		Prompt:         prompt,
		NegativePrompt: strings.TrimSpace(in.NegativePrompt),
		ModelName:      strings.TrimSpace(in.ModelName),
		Steps:          in.Steps,
		Guidance:       in.Guidance,
		Width:          width,
		Height:         height,
		IsPublic:       public,
	})
	if err != nil {
		return PostView{}, storeErr("create post", err)
	}
	s.invalidate(ctx, cache.ProfileKey(a.ID()))

	view := PostView{Post: p, IsOwner: true}
	if prof, err := s.profile(ctx, a.ID()); err == nil {
		view.Author = toAuthor(prof)
	}
	return view, nil
}

// DeletePost soft-deletes a post owned by the actor.
func (s *Service) DeletePost(ctx context.Context, a actor.Actor, postID string) error {
	if err := requireActor(a); err != nil {
		return err
	}
	p, err := s.store.Posts.GetPost(ctx, strings.TrimSpace(postID))
	if err != nil {
		return storeErr("get post", err)
	}
	if p.IsDeleted {
		return domain.ErrNotFound
	}
	if !a.Is(p.UserID) {
		return domain.ErrForbidden
	}
	if err := s.store.Posts.SoftDelete(ctx, p.ID); err != nil {
		return storeErr("delete post", err)
	}
	s.invalidate(ctx, cache.PostKey(p.ID), cache.ProfileKey(p.UserID))
	s.publish(events.SubjectPostDeleted, a.ID(), p.ID, nil)
	return nil
}

// ToggleLike flips the actor's like on a visible post.
func (s *Service) ToggleLike(ctx context.Context, a actor.Actor, postID string) (engagement.Result, error) {
	return s.toggler.Toggle(ctx, a, postID, engagement.Like)
}

// ToggleFollow flips whether the actor follows userID.
func (s *Service) ToggleFollow(ctx context.Context, a actor.Actor, userID string) (engagement.Result, error) {
	return s.toggler.Toggle(ctx, a, userID, engagement.Follow)
}

func (s *Service) checkTarget(ctx context.Context, a actor.Actor, kind engagement.Kind, targetID string) error {
	switch kind {
	case engagement.Like:
		_, err := s.engageablePost(ctx, a, targetID)
		return err
	case engagement.Follow:
		_, err := s.profile(ctx, targetID)
		return err
	default:
		return domain.ErrNotFound
	}
}
