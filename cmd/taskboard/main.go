package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/taskboard/internal/app"
	"github.com/odyssey-erp/taskboard/internal/auth"
	"github.com/odyssey-erp/taskboard/internal/observability"
	"github.com/odyssey-erp/taskboard/internal/platform/cache"
	"github.com/odyssey-erp/taskboard/internal/rbac"
	"github.com/odyssey-erp/taskboard/internal/shared"
	"github.com/odyssey-erp/taskboard/internal/tasks"
	"github.com/odyssey-erp/taskboard/internal/token"
	"github.com/odyssey-erp/taskboard/internal/validation"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("taskboard stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.JWTSecret == app.PlaceholderJWTSecret {
		logger.Warn("JWT_SECRET is the development placeholder")
	}

	stores, err := app.OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	tokens, err := token.NewService(token.Config{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL})
	if err != nil {
		return err
	}
	hasher, err := auth.NewBcryptHasher(cfg.HashCost())
	if err != nil {
		return err
	}
	authService := auth.NewService(stores.Users, tokens, hasher, auth.Config{
		DefaultRole: cfg.DefaultRole,
		RegistrationPassword: validation.PasswordOptions{
			AllowMissingSymbol: cfg.RegistrationAllowMissingSymbol,
		},
	})

	metrics := observability.NewMetrics()
	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		AuthHandler:    auth.NewHandler(logger, authService, sessionManager, metrics),
		AdminHandler:   auth.NewAdminHandler(logger, authService),
		TasksHandler:   tasks.NewHandler(logger, tasks.NewService(stores.Tasks)),
		RBACMiddleware: rbac.Middleware{Logger: logger},
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
