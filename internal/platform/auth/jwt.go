// Package auth resolves the current actor from a bearer token issued by the
// identity provider. Only the token subject is trusted; sessions and sign-in
// live outside this service.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/yond5413/pentagram/internal/platform/api"
)

type ctxKeyUserID struct{}

var ErrMissingToken = errors.New("missing bearer token")

func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyUserID{}).(string)
	return v, ok && v != ""
}

// WithUserID injects user_id into context. Useful for testing.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// subjectFromRequest returns the verified subject of the request's bearer token.
func (v JWTVerifier) subjectFromRequest(r *http.Request) (string, error) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrMissingToken
	}
	claims, err := v.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// RequireUser middleware validates Bearer token and injects user_id into context.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, err := verifier.subjectFromRequest(r)
			if err != nil {
				api.Unauthorized(w, api.CodeUnauthorized, "authentication required", "")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sub)))
		})
	}
}

// OptionalUser injects user_id when a valid token is present and otherwise
// lets the request through as anonymous.
func OptionalUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, err := verifier.subjectFromRequest(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sub)))
		})
	}
}
