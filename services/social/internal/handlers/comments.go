package handlers

import (
	"net/http"

	"github.com/yond5413/pentagram/internal/platform/api"
	"github.com/yond5413/pentagram/services/social/internal/service"
)

type createCommentRequest struct {
	Content         string `json:"content"`
	ParentCommentID string `json:"parent_comment_id,omitempty"`
}

// CreateComment handles POST /v1/posts/{post_id}/comments
func CreateComment(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "post_id")
		if !ok {
			return
		}
		var req createCommentRequest
		if !decode(w, r, &req) {
			return
		}
		created, err := svc.AddComment(r.Context(), actorFrom(r), postID, req.Content, req.ParentCommentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// ListComments handles GET /v1/posts/{post_id}/comments?limit=
func ListComments(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "post_id")
		if !ok {
			return
		}
		list, err := svc.ListComments(r.Context(), actorFrom(r), postID, queryLimit(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, list)
	}
}

// DeleteComment handles DELETE /v1/comments/{comment_id}
func DeleteComment(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID, ok := pathID(w, r, "comment_id")
		if !ok {
			return
		}
		if err := svc.DeleteComment(r.Context(), actorFrom(r), commentID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
