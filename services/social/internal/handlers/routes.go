package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yond5413/pentagram/internal/platform/auth"
	"github.com/yond5413/pentagram/services/social/internal/service"
)

// Mount registers the /v1 routes. Reads accept anonymous callers; writes
// require a bearer token. toggleLimit, when non-nil, wraps the like and
// follow toggles.
func Mount(r chi.Router, svc *service.Service, verifier auth.JWTVerifier, toggleLimit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalUser(verifier))
		r.Get("/v1/explore", Explore(svc))
		r.Get("/v1/feed", Feed(svc))
		r.Get("/v1/posts/{post_id}", GetPost(svc))
		r.Get("/v1/posts/{post_id}/comments", ListComments(svc))
		r.Get("/v1/profiles/{username}", GetProfile(svc))
		r.Get("/v1/profiles/{username}/posts", UserPosts(svc))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/posts", CreatePost(svc))
		r.Delete("/v1/posts/{post_id}", DeletePost(svc))
		r.Post("/v1/posts/{post_id}/comments", CreateComment(svc))
		r.Delete("/v1/comments/{comment_id}", DeleteComment(svc))
		r.Post("/v1/profiles", EnsureProfile(svc))
		r.Put("/v1/profiles/me", UpdateProfile(svc))

		r.Group(func(r chi.Router) {
			if toggleLimit != nil {
				r.Use(toggleLimit)
			}
			r.Post("/v1/posts/{post_id}/like", ToggleLike(svc))
			r.Post("/v1/users/{user_id}/follow", ToggleFollow(svc))
		})
	})
}
