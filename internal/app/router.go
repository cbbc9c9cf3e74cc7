package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/taskboard/internal/auth"
	"github.com/odyssey-erp/taskboard/internal/observability"
	"github.com/odyssey-erp/taskboard/internal/rbac"
	"github.com/odyssey-erp/taskboard/internal/shared"
	"github.com/odyssey-erp/taskboard/internal/tasks"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	AuthHandler    *auth.Handler
	AdminHandler   *auth.AdminHandler
	TasksHandler   *tasks.Handler
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	requireUser := params.AuthHandler.Authenticator().RequireUser
	if params.TasksHandler != nil {
		r.Route("/tasks", func(r chi.Router) {
			r.Use(requireUser)
			params.TasksHandler.MountRoutes(r)
		})
	}
	if params.AdminHandler != nil {
		adminRole := auth.DefaultAdminRole
		if params.Config != nil && params.Config.AdminRole != "" {
			adminRole = params.Config.AdminRole
		}
		r.Route("/users", func(r chi.Router) {
			r.Use(requireUser)
			r.Use(params.RBACMiddleware.RequireAny(adminRole))
			params.AdminHandler.MountRoutes(r)
		})
	}

	return r
}
