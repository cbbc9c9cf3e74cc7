package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/taskboard/internal/platform/httpx"
	"github.com/odyssey-erp/taskboard/internal/shared"
)

// AdminHandler exposes account administration. Routes must be mounted behind
// RequireUser and a role gate.
type AdminHandler struct {
	logger  *slog.Logger
	service UseCases
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(logger *slog.Logger, service UseCases) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{logger: logger, service: service}
}

// MountRoutes registers user administration routes.
func (h *AdminHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/{id}/roles", h.grantRole)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *AdminHandler) grantRole(w http.ResponseWriter, r *http.Request) {
	var req GrantRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	userID := chi.URLParam(r, "id")
	user, err := h.service.GrantRole(r.Context(), userID, req.Role)
	if err != nil {
		if _, isFailure := shared.AsFailure(err); !isFailure {
			h.logger.Error("grant role failed", slog.String("user_id", userID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	h.logger.Info("role granted",
		slog.String("user_id", userID),
		slog.String("role", req.Role),
		slog.String("granted_by", actor.UserID))
	httpx.JSON(w, http.StatusOK, user)
}
