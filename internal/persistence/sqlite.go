package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/taskforge/task-manager/internal/config"
	"github.com/taskforge/task-manager/internal/repository"
)

// SQLite is the embedded store used for local runs and tests.
type SQLite struct {
	Conn *sqlx.DB
}

// NewSQLite opens the database at cfg.Path. ":memory:" gives a private
// in-memory database held on a single connection.
func NewSQLite(ctx context.Context, cfg config.SQLiteConfig, logger *zap.Logger) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, errors.New("SQLITE_PATH is required when STORE_DRIVER=sqlite")
	}

	db, err := sqlx.Open("sqlite", sqliteDSN(cfg.Path))
	if err != nil {
		return nil, err
	}

	switch {
	case isMemoryPath(cfg.Path):
		db.SetMaxOpenConns(1)
	case cfg.MaxConns > 0:
		db.SetMaxOpenConns(cfg.MaxConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("opened sqlite store", zap.String("path", cfg.Path))
	return &SQLite{Conn: db}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Close releases the database handle.
func (s *SQLite) Close() {
	if s != nil && s.Conn != nil {
		_ = s.Conn.Close()
	}
}

// Ping verifies the database is usable.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.Conn == nil {
		return repository.ErrStoreUnavailable
	}
	return translateSQLiteError(ctx, s.Conn.PingContext(ctx))
}

// DB exposes the handle through the repository interface.
func (s *SQLite) DB() repository.DB {
	return &sqlxDB{ext: s.Conn, db: s.Conn}
}

// Migrate applies the embedded SQLite migrations.
func (s *SQLite) Migrate(ctx context.Context, logger *zap.Logger) error {
	return runMigrations(ctx, dialectSQLite, s.DB(), logger)
}

// sqlxDB adapts a database or transaction. db is nil inside a transaction.
type sqlxDB struct {
	ext sqlx.ExtContext
	db  *sqlx.DB
}

func (d *sqlxDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateSQLiteError(ctx, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, translateSQLiteError(ctx, err)
	}
	return n, nil
}

func (d *sqlxDB) Query(ctx context.Context, query string, args ...any) (repository.Rows, error) {
	rows, err := d.ext.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, translateSQLiteError(ctx, err)
	}
	return &sqlxRows{ctx: ctx, rows: rows}, nil
}

func (d *sqlxDB) QueryRow(ctx context.Context, query string, args ...any) repository.Row {
	return &sqlxRow{ctx: ctx, row: d.ext.QueryRowxContext(ctx, query, args...)}
}

func (d *sqlxDB) WithTx(ctx context.Context, fn func(tx repository.DB) error) (err error) {
	if d.db == nil {
		return fn(d)
	}
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateSQLiteError(ctx, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlxDB{ext: tx}); err != nil {
		_ = tx.Rollback()
		return translateSQLiteError(ctx, err)
	}
	return translateSQLiteError(ctx, tx.Commit())
}

type sqlxRows struct {
	ctx  context.Context
	rows *sqlx.Rows
}

func (r *sqlxRows) Next() bool { return r.rows.Next() }

func (r *sqlxRows) Scan(dest ...any) error {
	return translateSQLiteError(r.ctx, r.rows.Scan(dest...))
}

func (r *sqlxRows) Err() error { return translateSQLiteError(r.ctx, r.rows.Err()) }

func (r *sqlxRows) Close() { _ = r.rows.Close() }

type sqlxRow struct {
	ctx context.Context
	row *sqlx.Row
}

func (r *sqlxRow) Scan(dest ...any) error {
	return translateSQLiteError(r.ctx, r.row.Scan(dest...))
}

// translateSQLiteError maps driver failures onto repository sentinels.
func translateSQLiteError(ctx context.Context, err error) error {
	if err == nil || isStoreError(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", repository.ErrStoreTimeout, err)
	}

	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		// database/sql does not export its closed-handle error.
		if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "sql: database is closed") {
			return fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
		}
		return err
	}

	code := sqliteErr.Code()
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", repository.ErrInUse, err)
	}

	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		msg := strings.ToUpper(err.Error())
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
		case strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("%w: %v", repository.ErrInUse, err)
		}
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN:
		return fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	return err
}
