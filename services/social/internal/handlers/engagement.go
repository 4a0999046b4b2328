package handlers

import (
	"net/http"

	"github.com/yond5413/pentagram/internal/platform/api"
	"github.com/yond5413/pentagram/services/social/internal/engagement"
	"github.com/yond5413/pentagram/services/social/internal/service"
)

type likeResponse struct {
	State engagement.State `json:"state"`
	Liked bool             `json:"liked"`
}

type followResponse struct {
	State     engagement.State `json:"state"`
	Following bool             `json:"following"`
}

// ToggleLike handles POST /v1/posts/{post_id}/like
func ToggleLike(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "post_id")
		if !ok {
			return
		}
		res, err := svc.ToggleLike(r.Context(), actorFrom(r), postID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, likeResponse{State: res.State, Liked: res.Active()})
	}
}

// ToggleFollow handles POST /v1/users/{user_id}/follow
func ToggleFollow(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(w, r, "user_id")
		if !ok {
			return
		}
		res, err := svc.ToggleFollow(r.Context(), actorFrom(r), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, followResponse{State: res.State, Following: res.Active()})
	}
}
