package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/config"
	"github.com/taskforge/task-manager/internal/repository"
)

// Store is an opened task store.
type Store interface {
	DB() repository.DB
	Ping(ctx context.Context) error
	Migrate(ctx context.Context, logger *zap.Logger) error
	Close()
}

// Open connects to the configured driver and, when enabled, applies
// migrations.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err = NewPostgres(ctx, cfg.Postgres, logger)
	case config.DriverSQLite:
		store, err = NewSQLite(ctx, cfg.SQLite, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := store.Migrate(ctx, logger); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}
