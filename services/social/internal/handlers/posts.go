package handlers

import (
	"net/http"

	"github.com/yond5413/pentagram/internal/platform/api"
	"github.com/yond5413/pentagram/services/social/internal/service"
)

type exploreResponse struct {
	Period string                 `json:"period"`
	Posts  []service.TrendingPost `json:"posts"`
}

type feedResponse struct {
	Posts []service.PostView `json:"posts"`
}

// Explore handles GET /v1/explore?period=today|week|month|all
func Explore(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period := r.URL.Query().Get("period")
		posts, err := svc.Explore(r.Context(), actorFrom(r), period)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if period == "" {
			period = "week"
		}
		api.WriteJSON(w, http.StatusOK, exploreResponse{Period: period, Posts: posts})
	}
}

// Feed handles GET /v1/feed
func Feed(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := svc.Feed(r.Context(), actorFrom(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, feedResponse{Posts: posts})
	}
}

// CreatePost handles POST /v1/posts
func CreatePost(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.CreatePostInput
		if !decode(w, r, &req) {
			return
		}
		post, err := svc.CreatePost(r.Context(), actorFrom(r), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, post)
	}
}

// GetPost handles GET /v1/posts/{post_id}
func GetPost(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "post_id")
		if !ok {
			return
		}
		post, err := svc.GetPost(r.Context(), actorFrom(r), postID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, post)
	}
}

// DeletePost handles DELETE /v1/posts/{post_id}
func DeletePost(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "post_id")
		if !ok {
			return
		}
		if err := svc.DeletePost(r.Context(), actorFrom(r), postID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
