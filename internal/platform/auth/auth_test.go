package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func makeToken(subject string, exp time.Time) string {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := tok.SignedString(testSecret)
	return signed
}

func newVerifier() JWTVerifier { return JWTVerifier{Secret: testSecret} }

// ─── JWTVerifier tests ──────────────────────────────────────────────────────

func TestJWTVerifier_ValidToken(t *testing.T) {
	tok := makeToken("user-1", time.Now().Add(time.Hour))
	claims, err := newVerifier().Parse(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject 'user-1', got %q", claims.Subject)
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	tok := makeToken("user-1", time.Now().Add(-time.Hour))
	if _, err := newVerifier().Parse(tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTVerifier_EmptySubject(t *testing.T) {
	tok := makeToken("  ", time.Now().Add(time.Hour))
	if _, err := newVerifier().Parse(tok); err == nil {
		t.Fatal("expected error for token without subject")
	}
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	tok := makeToken("user-1", time.Now().Add(time.Hour))
	if _, err := (JWTVerifier{Secret: []byte("wrong-secret")}).Parse(tok); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestJWTVerifier_TamperedPayload(t *testing.T) {
	tok := makeToken("user-1", time.Now().Add(time.Hour))
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatal("expected 3 JWT parts")
	}
	tampered := parts[0] + ".dGFtcGVyZWQ." + parts[2]
	if _, err := newVerifier().Parse(tampered); err == nil {
		t.Fatal("expected error for tampered token")
	}
}

// ─── middleware tests ────────────────────────────────────────────────────────

func echoUser(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(uid))
}

func TestRequireUser_ValidBearer(t *testing.T) {
	tok := makeToken("user-42", time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	rr := httptest.NewRecorder()
	RequireUser(newVerifier())(http.HandlerFunc(echoUser)).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "user-42" {
		t.Fatalf("expected 'user-42' in body, got %q", rr.Body.String())
	}
}

func TestRequireUser_MissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	RequireUser(newVerifier())(http.HandlerFunc(echoUser)).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRequireUser_NonBearerScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	RequireUser(newVerifier())(http.HandlerFunc(echoUser)).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestOptionalUser_AnonymousPassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	OptionalUser(newVerifier())(http.HandlerFunc(echoUser)).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "" {
		t.Fatalf("expected anonymous request, got user %q", rr.Body.String())
	}
}

func TestOptionalUser_InvalidTokenIsAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid.token.here")
	rr := httptest.NewRecorder()
	OptionalUser(newVerifier())(http.HandlerFunc(echoUser)).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "" {
		t.Fatalf("expected anonymous 200, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestOptionalUser_ValidTokenInjectsUser(t *testing.T) {
	tok := makeToken("user-7", time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	OptionalUser(newVerifier())(http.HandlerFunc(echoUser)).ServeHTTP(rr, req)
	if rr.Body.String() != "user-7" {
		t.Fatalf("expected 'user-7', got %q", rr.Body.String())
	}
}
