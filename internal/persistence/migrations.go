package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/repository"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

type dialect string

const (
	dialectPostgres dialect = "postgres"
	dialectSQLite   dialect = "sqlite"
)

// runMigrations executes the dialect's SQL files in name order, each in
// its own transaction. Every statement is idempotent, so re-running on an
// existing schema is a no-op.
func runMigrations(ctx context.Context, d dialect, db repository.DB, logger *zap.Logger) error {
	return applyMigrations(ctx, migrationFS, path.Join("migrations", string(d)), db, logger)
}

func applyMigrations(ctx context.Context, fsys fs.FS, dir string, db repository.DB, logger *zap.Logger) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	filenames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filenames = append(filenames, entry.Name())
	}

	sort.Strings(filenames)

	for _, name := range filenames {
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		logger.Info("applying migration", zap.String("dir", dir), zap.String("file", name))
		err = db.WithTx(ctx, func(tx repository.DB) error {
			_, err := tx.Exec(ctx, string(content))
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	logger.Info("migrations applied", zap.Int("count", len(filenames)))
	return nil
}
