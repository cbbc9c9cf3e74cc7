package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/taskboard/internal/observability"
	"github.com/odyssey-erp/taskboard/internal/platform/httpx"
	"github.com/odyssey-erp/taskboard/internal/shared"
)

// CurrentUserResolver resolves an access token to an account.
type CurrentUserResolver interface {
	CurrentUser(ctx context.Context, raw string) (PublicUser, error)
}

// Authenticator resolves the caller from a bearer header or the session and
// stores the principal in the request context.
type Authenticator struct {
	Service CurrentUserResolver
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// RequireUser rejects requests without valid credentials.
func (a Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, fromSession := credentialsFrom(r)
		if raw == "" {
			a.Metrics.RecordAuth("resolve", observability.OutcomeRejected)
			httpx.RespondError(w, unauthenticated())
			return
		}
		user, err := a.Service.CurrentUser(r.Context(), raw)
		if err != nil {
			if _, isFailure := shared.AsFailure(err); isFailure {
				a.Metrics.RecordAuth("resolve", observability.OutcomeRejected)
				if fromSession {
					// Stale session token; forget it so the next request starts clean.
					if sess := shared.SessionFromContext(r.Context()); sess != nil {
						sess.Delete(shared.SessionTokenKey)
					}
				}
			} else {
				a.Metrics.RecordAuth("resolve", observability.OutcomeError)
				if a.Logger != nil {
					a.Logger.Error("resolve current user", slog.Any("error", err))
				}
			}
			httpx.RespondError(w, err)
			return
		}
		a.Metrics.RecordAuth("resolve", observability.OutcomeSuccess)
		ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{
			UserID:   user.ID,
			Username: user.Username,
			FullName: user.FullName,
			Roles:    user.Roles,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// credentialsFrom prefers an Authorization bearer token over the session token.
func credentialsFrom(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value), false
		}
		return "", false
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.Get(shared.SessionTokenKey), true
	}
	return "", false
}
