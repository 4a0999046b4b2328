package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/yond5413/pentagram/internal/platform/api"
	"github.com/yond5413/pentagram/internal/platform/auth"
	"github.com/yond5413/pentagram/internal/platform/ratelimit"
	"github.com/yond5413/pentagram/services/social/internal/actor"
	"github.com/yond5413/pentagram/services/social/internal/service"
	"github.com/yond5413/pentagram/services/social/internal/store"
)

// setupReq builds a request with chi URL params and optional user_id in context.
func setupReq(method, url string, body string, params map[string]string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

// newService seeds two profiles and one public post owned by user-a.
func newService(t *testing.T) (*service.Service, store.Post) {
	t.Helper()
	st := store.NewInMemory()
	svc := service.New(service.Options{Store: st})
	ctx := context.Background()
	for _, u := range []string{"user-a", "user-b"} {
		if _, err := svc.EnsureProfile(ctx, actor.User(u), service.ProfileInput{Username: strings.ReplaceAll(u, "-", "_")}); err != nil {
			t.Fatalf("seed profile: %v", err)
		}
	}
	p, err := st.Posts.CreatePost(ctx, store.Post{UserID: "user-a", ImageURL: "https://img/a.png", Prompt: "fox", Width: 512, Height: 512, IsPublic: true})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return svc, p
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error.Code
}

func TestCreateComment(t *testing.T) {
	svc, post := newService(t)
	handler := CreateComment(svc)

	req := setupReq(http.MethodPost, "/v1/posts/"+post.ID+"/comments", `{"content":"  hello world  "}`,
		map[string]string{"post_id": post.ID}, "user-b")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var c struct {
		Content string `json:"content"`
		UserID  string `json:"user_id"`
		IsOwner bool   `json:"is_owner"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Content != "hello world" || c.UserID != "user-b" || !c.IsOwner {
		t.Fatalf("unexpected comment %+v", c)
	}
}

func TestCreateComment_Unauthorized(t *testing.T) {
	svc, post := newService(t)
	req := setupReq(http.MethodPost, "/v1/posts/"+post.ID+"/comments", `{"content":"hello"}`,
		map[string]string{"post_id": post.ID}, "")
	rr := httptest.NewRecorder()
	CreateComment(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCreateComment_Validation(t *testing.T) {
	svc, post := newService(t)
	cases := map[string]string{
		"empty":    `{"content":"   "}`,
		"too long": `{"content":"` + strings.Repeat("x", 501) + `"}`,
	}
	for name, body := range cases {
		req := setupReq(http.MethodPost, "/", body, map[string]string{"post_id": post.ID}, "user-b")
		rr := httptest.NewRecorder()
		CreateComment(svc).ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rr.Code)
		}
		if code := errorCode(t, rr); code != api.CodeValidation {
			t.Fatalf("%s: expected %s, got %s", name, api.CodeValidation, code)
		}
	}

	req := setupReq(http.MethodPost, "/", `{not json`, map[string]string{"post_id": post.ID}, "user-b")
	rr := httptest.NewRecorder()
	CreateComment(svc).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != api.CodeInvalidJSON {
		t.Fatalf("expected INVALID_JSON 400, got %d", rr.Code)
	}
}

func TestListComments(t *testing.T) {
	svc, post := newService(t)
	ctx := context.Background()
	root, _ := svc.AddComment(ctx, actor.User("user-a"), post.ID, "root", "")
	_, _ = svc.AddComment(ctx, actor.User("user-b"), post.ID, "reply", root.ID)

	req := setupReq(http.MethodGet, "/v1/posts/"+post.ID+"/comments?limit=10", "",
		map[string]string{"post_id": post.ID}, "user-b")
	rr := httptest.NewRecorder()
	ListComments(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp service.CommentList
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Comments) != 1 || resp.Total != 2 {
		t.Fatalf("expected 1 root and 2 total, got %d/%d", len(resp.Comments), resp.Total)
	}
	if resp.Comments[0].IsOwner || !resp.Comments[0].Replies[0].IsOwner {
		t.Fatal("is_owner must follow the requesting user")
	}
}

func TestDeleteComment_NotAuthor(t *testing.T) {
	svc, post := newService(t)
	c, _ := svc.AddComment(context.Background(), actor.User("user-a"), post.ID, "mine", "")

	req := setupReq(http.MethodDelete, "/v1/comments/"+c.ID, "", map[string]string{"comment_id": c.ID}, "user-b")
	rr := httptest.NewRecorder()
	DeleteComment(svc).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	req = setupReq(http.MethodDelete, "/v1/comments/"+c.ID, "", map[string]string{"comment_id": c.ID}, "user-a")
	rr = httptest.NewRecorder()
	DeleteComment(svc).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestToggleLike(t *testing.T) {
	svc, post := newService(t)
	handler := ToggleLike(svc)

	for i, want := range []bool{true, false} {
		req := setupReq(http.MethodPost, "/v1/posts/"+post.ID+"/like", "", map[string]string{"post_id": post.ID}, "user-b")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i, rr.Code)
		}
		var resp likeResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Liked != want {
			t.Fatalf("call %d: expected liked=%v, got %+v", i, want, resp)
		}
	}

	req := setupReq(http.MethodPost, "/", "", map[string]string{"post_id": "missing"}, "user-b")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing post, got %d", rr.Code)
	}
}

func TestToggleFollow_Self(t *testing.T) {
	svc, _ := newService(t)
	req := setupReq(http.MethodPost, "/v1/users/user-a/follow", "", map[string]string{"user_id": "user-a"}, "user-a")
	rr := httptest.NewRecorder()
	ToggleFollow(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if code := errorCode(t, rr); code != api.CodeSelfFollow {
		t.Fatalf("expected %s, got %s", api.CodeSelfFollow, code)
	}
}

func TestEnsureProfile_UsernameTaken(t *testing.T) {
	svc, _ := newService(t)
	req := setupReq(http.MethodPost, "/v1/profiles", `{"username":"USER_A"}`, nil, "user-c")
	rr := httptest.NewRecorder()
	EnsureProfile(svc).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	var resp api.ErrorResponse
	_ = json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Message != "username already taken" {
		t.Fatalf("unexpected message %q", resp.Error.Message)
	}
}

func TestMissingPathID(t *testing.T) {
	svc, _ := newService(t)
	req := setupReq(http.MethodGet, "/v1/posts/", "", map[string]string{"post_id": " "}, "")
	rr := httptest.NewRecorder()
	GetPost(svc).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest || errorCode(t, rr) != api.CodeMissingID {
		t.Fatalf("expected MISSING_ID 400, got %d", rr.Code)
	}
}

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func bearer(subject string) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, _ := tok.SignedString(testSecret)
	return "Bearer " + signed
}

func TestMount_AuthAndRateLimit(t *testing.T) {
	svc, post := newService(t)
	limiter := ratelimit.New(1, 1)
	r := chi.NewRouter()
	Mount(r, svc, auth.JWTVerifier{Secret: testSecret}, limiter.Middleware(func(r *http.Request) string {
		uid, _ := auth.UserIDFromContext(r.Context())
		return uid
	}))

	do := func(method, path, authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	if rr := do(http.MethodGet, "/v1/posts/"+post.ID, ""); rr.Code != http.StatusOK {
		t.Fatalf("anonymous read: expected 200, got %d", rr.Code)
	}
	if rr := do(http.MethodGet, "/v1/explore?period=today", "Bearer garbage"); rr.Code != http.StatusOK {
		t.Fatalf("invalid token on a read falls back to anonymous, got %d", rr.Code)
	}
	if rr := do(http.MethodPost, "/v1/posts/"+post.ID+"/like", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous like: expected 401, got %d", rr.Code)
	}
	if rr := do(http.MethodPost, "/v1/posts/"+post.ID+"/like", bearer("user-b")); rr.Code != http.StatusOK {
		t.Fatalf("like: expected 200, got %d", rr.Code)
	}
	if rr := do(http.MethodPost, "/v1/posts/"+post.ID+"/like", bearer("user-b")); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("burst exceeded: expected 429, got %d", rr.Code)
	}

	rr := do(http.MethodGet, "/v1/posts/"+post.ID, bearer("user-b"))
	var view service.PostView
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.LikeCount != 1 || !view.UserHasLiked {
		t.Fatalf("expected the like to be visible, got %+v", view)
	}
}

func TestUserPosts_OwnerSeesPrivate(t *testing.T) {
	svc, post := newService(t)
	private := false
	hidden, err := svc.CreatePost(context.Background(), actor.User("user-a"),
		service.CreatePostInput{ImageURL: "https://img/b.png", Prompt: "owl", IsPublic: &private})
	if err != nil {
		t.Fatalf("seed private post: %v", err)
	}

	list := func(userID string) []string {
		t.Helper()
		req := setupReq(http.MethodGet, "/v1/profiles/user_a/posts", "", map[string]string{"username": "user_a"}, userID)
		rr := httptest.NewRecorder()
		UserPosts(svc).ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp struct {
			Posts []struct {
				ID string `json:"id"`
			} `json:"posts"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		ids := make([]string, len(resp.Posts))
		for i, p := range resp.Posts {
			ids[i] = p.ID
		}
		return ids
	}

	if ids := list("user-b"); len(ids) != 1 || ids[0] != post.ID {
		t.Fatalf("other users see only public posts, got %v", ids)
	}
	if ids := list("user-a"); len(ids) != 2 || ids[0] != hidden.ID {
		t.Fatalf("owner sees private posts newest first, got %v", ids)
	}

	req := setupReq(http.MethodGet, "/v1/profiles/nobody/posts", "", map[string]string{"username": "nobody"}, "")
	rr := httptest.NewRecorder()
	UserPosts(svc).ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rr.Code)
	}
}

func TestQueryLimit(t *testing.T) {
	cases := map[string]int{"": 0, "?limit=10": 10, "?limit=0": 0, "?limit=101": 0, "?limit=x": 0}
	for q, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/"+q, nil)
		if got := queryLimit(req); got != want {
			t.Fatalf("%q: expected %d, got %d", q, want, got)
		}
	}
}
