package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yond5413/pentagram/internal/platform/api"
	"github.com/yond5413/pentagram/internal/platform/auth"
	"github.com/yond5413/pentagram/internal/platform/httpserver"
	"github.com/yond5413/pentagram/services/social/internal/actor"
	"github.com/yond5413/pentagram/services/social/internal/domain"
)

const maxBody = 1 << 20

// queryLimit reads ?limit= in 1..100; anything else means the default (0).
func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > 100 {
		return 0
	}
	return n
}

// actorFrom returns the authenticated user of r, or actor.Anonymous.
func actorFrom(r *http.Request) actor.Actor {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return actor.Anonymous
	}
	return actor.User(uid)
}

// pathID reads a required chi URL parameter and writes 400 when it is blank.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, name))
	if id == "" {
		api.BadRequest(w, api.CodeMissingID, name+" is required", httpserver.RequestIDFromContext(r.Context()), nil)
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(dst); err != nil {
		api.BadRequest(w, api.CodeInvalidJSON, "invalid JSON", httpserver.RequestIDFromContext(r.Context()), nil)
		return false
	}
	return true
}

// writeError maps the domain error taxonomy onto HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())

	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		api.Unauthorized(w, api.CodeUnauthorized, "authentication required", rid)
	case errors.Is(err, domain.ErrSelfReference):
		api.BadRequest(w, api.CodeSelfFollow, "you cannot follow yourself", rid, nil)
	case errors.As(err, &verr):
		api.BadRequest(w, api.CodeValidation, verr.Reason, rid, map[string]any{"field": verr.Field})
	case errors.Is(err, domain.ErrNotFound):
		api.NotFound(w, api.CodeNotFound, "not found", rid)
	case errors.Is(err, domain.ErrForbidden):
		api.Forbidden(w, api.CodeForbidden, "not allowed", rid)
	case errors.Is(err, domain.ErrConflict):
		api.Conflict(w, api.CodeConflict, strings.TrimPrefix(err.Error(), domain.ErrConflict.Error()+": "), rid, nil)
	default:
		api.Internal(w, rid)
	}
}
