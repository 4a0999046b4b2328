package handlers

import (
	"net/http"

	"github.com/yond5413/pentagram/internal/platform/api"
	"github.com/yond5413/pentagram/services/social/internal/service"
)

// EnsureProfile handles POST /v1/profiles
func EnsureProfile(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.ProfileInput
		if !decode(w, r, &req) {
			return
		}
		p, err := svc.EnsureProfile(r.Context(), actorFrom(r), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

// GetProfile handles GET /v1/profiles/{username}
func GetProfile(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := pathID(w, r, "username")
		if !ok {
			return
		}
		p, err := svc.GetProfile(r.Context(), actorFrom(r), username)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

type userPostsResponse struct {
	Posts []service.PostView `json:"posts"`
}

// UserPosts handles GET /v1/profiles/{username}/posts?limit=
func UserPosts(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := pathID(w, r, "username")
		if !ok {
			return
		}
		posts, err := svc.UserPosts(r.Context(), actorFrom(r), username, queryLimit(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, userPostsResponse{Posts: posts})
	}
}

// UpdateProfile handles PUT /v1/profiles/me
func UpdateProfile(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.ProfileUpdate
		if !decode(w, r, &req) {
			return
		}
		p, err := svc.UpdateProfile(r.Context(), actorFrom(r), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}
