package tasks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/taskboard/internal/platform/httpx"
	"github.com/odyssey-erp/taskboard/internal/shared"
)

// UseCases is the task behaviour the handler depends on.
type UseCases interface {
	CreateTask(ctx context.Context, ownerID string, req CreateTaskRequest) (Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]Task, error)
}

// Handler exposes the caller's task list over HTTP.
type Handler struct {
	logger  *slog.Logger
	service UseCases
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service UseCases) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers task routes. The router must already resolve the principal.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	list, err := h.service.ListTasks(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("list tasks", slog.String("user_id", principal.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var req CreateTaskRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	task, err := h.service.CreateTask(r.Context(), principal.UserID, req)
	if err != nil {
		if _, isFailure := shared.AsFailure(err); !isFailure {
			h.logger.Error("create task", slog.String("user_id", principal.UserID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("task created", slog.String("user_id", principal.UserID), slog.Int64("task_id", task.ID))
	httpx.JSON(w, http.StatusCreated, task)
}
