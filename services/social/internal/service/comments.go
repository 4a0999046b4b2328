package service

import (
	"context"
	"strings"

	"github.com/yond5413/pentagram/internal/platform/events"
	"github.com/yond5413/pentagram/internal/platform/metrics"
	"github.com/yond5413/pentagram/services/social/internal/actor"
	"github.com/yond5413/pentagram/services/social/internal/cache"
	"github.com/yond5413/pentagram/services/social/internal/commenttree"
	"github.com/yond5413/pentagram/services/social/internal/domain"
	"github.com/yond5413/pentagram/services/social/internal/store"
)

type CommentList struct {
	Comments []commenttree.Thread `json:"comments"`
	Total    int                  `json:"total"`
}

// AddComment posts a comment, or a reply when parentID is set, on a post
// the actor can see.
func (s *Service) AddComment(ctx context.Context, a actor.Actor, postID, content, parentID string) (commenttree.Thread, error) {
	if err := requireActor(a); err != nil {
		return commenttree.Thread{}, err
	}
	body, err := domain.NormalizeComment(content)
	if err != nil {
		return commenttree.Thread{}, err
	}
	post, err := s.engageablePost(ctx, a, postID)
	if err != nil {
		return commenttree.Thread{}, err
	}
	postID = post.ID

	var parent *string
	if pid := strings.TrimSpace(parentID); pid != "" {
		pc, err := s.store.Comments.GetComment(ctx, pid)
		if err != nil {
			return commenttree.Thread{}, storeErr("get parent comment", err)
		}
		if pc.PostID != postID {
			return commenttree.Thread{}, domain.ErrNotFound
		}
		parent = &pc.ID
	}

	c, err := s.store.Comments.CreateComment(ctx, store.Comment{
		PostID:   postID,
		UserID:   a.ID(),
		ParentID: parent,
		Content:  body,
	})
	if err != nil {
		return commenttree.Thread{}, storeErr("create comment", err)
	}
	s.invalidate(ctx, cache.PostKey(postID))
	s.publish(events.SubjectCommentCreated, a.ID(), c.ID, map[string]any{"post_id": postID})

	out := commenttree.Thread{
		Comment: toTreeComment(c, nil),
		Replies: []commenttree.Thread{},
		IsOwner: true,
	}
	if prof, err := s.profile(ctx, a.ID()); err == nil {
		out.Author = toAuthor(prof)
	}
	return out, nil
}

// DeleteComment hard-deletes a comment written by the actor. Replies stay
// in the store and drop out of the rendered tree.
func (s *Service) DeleteComment(ctx context.Context, a actor.Actor, commentID string) error {
	if err := requireActor(a); err != nil {
		return err
	}
	c, err := s.store.Comments.GetComment(ctx, strings.TrimSpace(commentID))
	if err != nil {
		return storeErr("get comment", err)
	}
	if !a.Is(c.UserID) {
		return domain.ErrForbidden
	}
	if err := s.store.Comments.DeleteComment(ctx, c.ID); err != nil {
		return storeErr("delete comment", err)
	}
	s.invalidate(ctx, cache.PostKey(c.PostID))
	s.publish(events.SubjectCommentDeleted, a.ID(), c.ID, map[string]any{"post_id": c.PostID})
	return nil
}

// ListComments returns the reply tree of a post, at most limit top-level
// comments (the configured default when limit <= 0).
func (s *Service) ListComments(ctx context.Context, a actor.Actor, postID string, limit int) (CommentList, error) {
	post, err := s.visiblePost(ctx, a, postID)
	if err != nil {
		return CommentList{}, err
	}
	if limit <= 0 {
		limit = s.commentLimit
	}

	rows, err := s.store.Comments.ListByPost(ctx, post.ID)
	if err != nil {
		return CommentList{}, storeErr("list comments", err)
	}
	userIDs := make([]string, len(rows))
	for i, c := range rows {
		userIDs[i] = c.UserID
	}
	profiles, err := s.authors(ctx, userIDs)
	if err != nil {
		return CommentList{}, err
	}

	flat := make([]commenttree.Comment, len(rows))
	for i, c := range rows {
		flat[i] = toTreeComment(c, authorOf(profiles, c.UserID))
	}
	forest := commenttree.Build(flat, a, limit)
	if d := forest.Dropped(); d > 0 {
		metrics.CommentOrphansDropped.Add(float64(d))
	}
	return CommentList{Comments: forest.Tree(), Total: forest.Len()}, nil
}

func toTreeComment(c store.Comment, author *Author) commenttree.Comment {
	out := commenttree.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Author:    author,
	}
	if c.ParentID != nil {
		out.ParentID = *c.ParentID
	}
	return out
}
