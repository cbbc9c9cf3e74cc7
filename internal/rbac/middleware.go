// Package rbac gates routes on the roles of the resolved principal.
package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/taskboard/internal/platform/httpx"
	"github.com/odyssey-erp/taskboard/internal/shared"
)

// Middleware wires role checks for HTTP handlers. It must run after the
// middleware that stores the principal.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current user holds at least one of the roles.
func (m Middleware) RequireAny(roles ...string) func(http.Handler) http.Handler {
	required := normalizeRoles(roles)
	return m.require(required, func(p shared.Principal) bool {
		if len(required) == 0 {
			return true
		}
		for _, r := range required {
			if p.HasRole(r) {
				return true
			}
		}
		return false
	})
}

// RequireAll ensures the current user holds every role.
func (m Middleware) RequireAll(roles ...string) func(http.Handler) http.Handler {
	required := normalizeRoles(roles)
	return m.require(required, func(p shared.Principal) bool {
		for _, r := range required {
			if !p.HasRole(r) {
				return false
			}
		}
		return true
	})
}

func (m Middleware) require(required []string, allowed func(shared.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			if !allowed(principal) {
				if m.Logger != nil {
					m.Logger.Warn("rbac denied",
						slog.String("user_id", principal.UserID),
						slog.Any("required", required),
						slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// normalizeRoles trims and de-duplicates names. Matching stays case-sensitive
// because role names are stored verbatim.
func normalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	normalized := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		normalized = append(normalized, r)
	}
	return normalized
}
