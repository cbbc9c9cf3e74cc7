package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/taskboard/internal/platform/db"
	"github.com/odyssey-erp/taskboard/internal/tasks"
	"github.com/odyssey-erp/taskboard/internal/users"
)

// Stores holds the repositories for the configured driver.
type Stores struct {
	Users users.Store
	Tasks tasks.Repository
	close func()
}

// Close releases the underlying database handle.
func (s Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores connects to the configured database, applies the schema and
// builds the repositories.
func OpenStores(ctx context.Context, cfg *Config, logger *slog.Logger) (Stores, error) {
	switch cfg.DBDriver {
	case DriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return Stores{}, err
		}
		if err := db.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return Stores{}, err
		}
		logger.Info("connected to postgres")
		return Stores{
			Users: users.NewRepository(pool),
			Tasks: tasks.NewRepository(pool),
			close: pool.Close,
		}, nil
	case DriverSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return Stores{}, err
		}
		logger.Info("opened sqlite database", slog.String("path", cfg.SQLitePath))
		return Stores{
			Users: users.NewSQLiteRepository(sqlDB),
			Tasks: tasks.NewSQLiteRepository(sqlDB),
			close: func() {
				if err := sqlDB.Close(); err != nil {
					logger.Warn("sqlite close", slog.Any("error", err))
				}
			},
		}, nil
	default:
		return Stores{}, fmt.Errorf("app: unknown db driver %q", cfg.DBDriver)
	}
}
