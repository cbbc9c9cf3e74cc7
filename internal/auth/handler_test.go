package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/taskboard/internal/auth"
	"github.com/odyssey-erp/taskboard/internal/platform/httpx"
	"github.com/odyssey-erp/taskboard/internal/shared"
	_ "github.com/odyssey-erp/taskboard/testing"
)

// stubService answers with canned results keyed by input.
type stubService struct {
	users    map[string]auth.PublicUser
	tokens   map[string]string
	password string
}

func (s *stubService) Register(_ context.Context, req auth.RegisterRequest) (auth.PublicUser, error) {
	if _, taken := s.users[req.Username]; taken {
		return auth.PublicUser{}, shared.NewFailure(shared.ErrConflict, shared.Detail{Title: "InvalidUsername"})
	}
	u := auth.PublicUser{ID: "id-" + req.Username, Username: req.Username, FullName: req.FullName, Roles: []string{"User"}}
	s.users[req.Username] = u
	return u, nil
}

func (s *stubService) Login(_ context.Context, req auth.LoginRequest) (string, error) {
	u, ok := s.users[req.Username]
	if !ok || req.Password != s.password {
		return "", shared.NewFailure(shared.ErrValidation, shared.Detail{Title: auth.InvalidLogin, Description: "Incorrect username or password"})
	}
	raw := "token-" + u.ID
	s.tokens[raw] = req.Username
	return raw, nil
}

func (s *stubService) CurrentUser(_ context.Context, raw string) (auth.PublicUser, error) {
	name, ok := s.tokens[raw]
	if !ok {
		f := shared.NewFailure(shared.ErrUnauthenticated, shared.Detail{Title: auth.CredentialsRejected, Description: auth.CredentialsRejected})
		f.Challenge = "Bearer"
		return auth.PublicUser{}, f
	}
	return s.users[name], nil
}

func (s *stubService) GrantRole(_ context.Context, userID, roleName string) (auth.PublicUser, error) {
	for name, u := range s.users {
		if u.ID == userID {
			u.Roles = append(u.Roles, roleName)
			s.users[name] = u
			return u, nil
		}
	}
	return auth.PublicUser{}, shared.NewFailure(shared.ErrNotFound, shared.Detail{Title: auth.InvalidUserID})
}

func (s *stubService) ListUsers(context.Context) ([]auth.PublicUser, error) {
	list := make([]auth.PublicUser, 0, len(s.users))
	for _, u := range s.users {
		list = append(list, u)
	}
	return list, nil
}

type testServer struct {
	handler  http.Handler
	service  *stubService
	sessions *shared.SessionManager
	redis    *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	svc := &stubService{users: map[string]auth.PublicUser{}, tokens: map[string]string{}, password: "Secret1"}
	handler := auth.NewHandler(nil, svc, sessions, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req.WithContext(ctx))
			if err := sessions.Commit(ctx, w, sess); err != nil {
				t.Errorf("commit session: %v", err)
			}
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	r.Route("/auth", handler.MountRoutes)
	r.Route("/admin/users", auth.NewAdminHandler(nil, svc).MountRoutes)
	return &testServer{handler: r, service: svc, sessions: sessions, redis: mr}
}

func (s *testServer) do(t *testing.T, method, path, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestSignUp(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/auth/sign-up", `{"username":"alice1","full_name":"Alice","password":"Secret1"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var user auth.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "alice1", user.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = srv.do(t, http.MethodPost, "/auth/sign-up", `{"username":"alice1","password":"Secret1"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodPost, "/auth/sign-up", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignInReturnsTokenAndStoresSession(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/auth/sign-up", `{"username":"bob123","password":"Secret1"}`, nil)

	rec := srv.do(t, http.MethodPost, "/auth/sign-in", `{"username":"bob123","password":"Secret1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "token-id-bob123", resp.AccessToken)
	assert.Equal(t, auth.TokenType, resp.TokenType)

	cookie := sessionCookie(t, rec)
	assert.True(t, srv.redis.Exists("session:"+cookie.Value))

	// The session alone authenticates the browser.
	rec = srv.do(t, http.MethodGet, "/auth/me", "", func(r *http.Request) { r.AddCookie(cookie) })
	require.Equal(t, http.StatusOK, rec.Code)
	var me auth.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "bob123", me.Username)

	rec = srv.do(t, http.MethodPost, "/auth/sign-out", "", func(r *http.Request) { r.AddCookie(cookie) })
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, srv.redis.Exists("session:"+cookie.Value))

	rec = srv.do(t, http.MethodGet, "/auth/me", "", func(r *http.Request) { r.AddCookie(cookie) })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignInFailuresShareBody(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/auth/sign-up", `{"username":"carol1","password":"Secret1"}`, nil)

	wrong := srv.do(t, http.MethodPost, "/auth/sign-in", `{"username":"carol1","password":"nope"}`, nil)
	unknown := srv.do(t, http.MethodPost, "/auth/sign-in", `{"username":"ghost1","password":"Secret1"}`, nil)

	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	assert.Contains(t, wrong.Body.String(), auth.InvalidLogin)
}

func TestMeWithBearerToken(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/auth/sign-up", `{"username":"dave01","password":"Secret1"}`, nil)
	rec := srv.do(t, http.MethodPost, "/auth/sign-in", `{"username":"dave01","password":"Secret1"}`, nil)
	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = srv.do(t, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dave01"`)

	rec = srv.do(t, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer forged")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.Contains(t, rec.Body.String(), auth.CredentialsRejected)

	rec = srv.do(t, http.MethodGet, "/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminGrantRole(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/auth/sign-up", `{"username":"erin01","password":"Secret1"}`, nil)

	rec := srv.do(t, http.MethodPost, "/admin/users/id-erin01/roles", `{"role":"Admin"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var user auth.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, []string{"User", "Admin"}, user.Roles)

	rec = srv.do(t, http.MethodPost, "/admin/users/missing/roles", `{"role":"Admin"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/admin/users/id-erin01/roles", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/admin/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []auth.PublicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}
