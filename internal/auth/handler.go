package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/taskboard/internal/observability"
	"github.com/odyssey-erp/taskboard/internal/platform/httpx"
	"github.com/odyssey-erp/taskboard/internal/shared"
)

// UseCases is the auth behaviour the HTTP layer depends on.
type UseCases interface {
	CurrentUserResolver
	Register(ctx context.Context, req RegisterRequest) (PublicUser, error)
	Login(ctx context.Context, req LoginRequest) (string, error)
	GrantRole(ctx context.Context, userID, roleName string) (PublicUser, error)
	ListUsers(ctx context.Context) ([]PublicUser, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        UseCases
	sessionManager *shared.SessionManager
	metrics        *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service UseCases, sessions *shared.SessionManager, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		metrics:        metrics,
	}
}

// Authenticator returns the middleware resolving the caller for protected routes.
func (h *Handler) Authenticator() Authenticator {
	return Authenticator{Service: h.service, Logger: h.logger, Metrics: h.metrics}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sign-up", h.handleSignUp)
	r.Post("/sign-in", h.handleSignIn)
	r.Post("/sign-out", h.handleSignOut)
	r.With(h.Authenticator().RequireUser).Get("/me", h.handleMe)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.recordFailure("register", err)
		if _, isFailure := shared.AsFailure(err); isFailure {
			h.logger.Warn("registration rejected", slog.String("username", req.Username), slog.Any("reason", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordAuth("register", observability.OutcomeSuccess)
	h.logger.Info("user registered", slog.String("user_id", user.ID))
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	raw, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.recordFailure("login", err)
		if _, isFailure := shared.AsFailure(err); isFailure {
			h.logger.Warn("login rejected", slog.String("username", req.Username))
		}
		httpx.RespondError(w, err)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil && h.sessionManager != nil {
		if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
			h.logger.Error("renew session", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		sess.Set(shared.SessionTokenKey, raw)
	}
	h.metrics.RecordAuth("login", observability.OutcomeSuccess)
	httpx.JSON(w, http.StatusOK, TokenResponse{AccessToken: raw, TokenType: TokenType})
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && h.sessionManager != nil {
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, unauthenticated())
		return
	}
	httpx.JSON(w, http.StatusOK, PublicUser{
		ID:       principal.UserID,
		Username: principal.Username,
		FullName: principal.FullName,
		Roles:    principal.Roles,
	})
}

func (h *Handler) recordFailure(operation string, err error) {
	if _, isFailure := shared.AsFailure(err); isFailure {
		h.metrics.RecordAuth(operation, observability.OutcomeRejected)
		return
	}
	h.metrics.RecordAuth(operation, observability.OutcomeError)
	h.logger.Error(operation+" failed", slog.Any("error", err))
}
