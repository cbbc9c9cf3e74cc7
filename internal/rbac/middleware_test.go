package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/odyssey-erp/taskboard/internal/shared"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, principal *shared.Principal) int {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if principal != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), *principal))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAny(t *testing.T) {
	m := Middleware{}
	admin := &shared.Principal{UserID: "u-1", Roles: []string{"User", "Admin"}}
	user := &shared.Principal{UserID: "u-2", Roles: []string{"User"}}
	none := &shared.Principal{UserID: "u-3"}

	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny("Admin"), admin))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAny("Admin"), user))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAny("Admin"), none))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny("Admin", " User "), user))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAny("admin"), admin))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(), none))
	assert.Equal(t, http.StatusUnauthorized, serve(t, m.RequireAny("Admin"), nil))
}

func TestRequireAll(t *testing.T) {
	m := Middleware{}
	admin := &shared.Principal{UserID: "u-1", Roles: []string{"User", "Admin"}}
	user := &shared.Principal{UserID: "u-2", Roles: []string{"User"}}

	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAll("User", "Admin"), admin))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAll("User", "Admin"), user))
	assert.Equal(t, http.StatusUnauthorized, serve(t, m.RequireAll("User"), nil))
}

func TestNormalizeRoles(t *testing.T) {
	assert.Equal(t, []string{"Admin", "User"}, normalizeRoles([]string{" Admin", "", "User", "Admin "}))
}
