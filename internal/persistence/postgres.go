package persistence

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/config"
	"github.com/taskforge/task-manager/internal/repository"
)

// Postgres wraps access to a pgx connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres establishes a connection pool for the configured DSN.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres", zap.Int32("max_conns", poolCfg.MaxConns))
	return &Postgres{Pool: pool}, nil
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// Ping verifies the pool can reach the server.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return repository.ErrStoreUnavailable
	}
	return translatePgError(ctx, p.Pool.Ping(ctx))
}

// DB exposes the pool through the repository interface.
func (p *Postgres) DB() repository.DB {
	return &pgxDB{q: p.Pool, pool: p.Pool}
}

// Migrate applies the embedded Postgres migrations.
func (p *Postgres) Migrate(ctx context.Context, logger *zap.Logger) error {
	return runMigrations(ctx, dialectPostgres, p.DB(), logger)
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxDB adapts a pool or transaction. pool is nil inside a transaction.
type pgxDB struct {
	q    pgxQuerier
	pool *pgxpool.Pool
}

func (d *pgxDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := d.q.Exec(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return 0, translatePgError(ctx, err)
	}
	return tag.RowsAffected(), nil
}

func (d *pgxDB) Query(ctx context.Context, query string, args ...any) (repository.Rows, error) {
	rows, err := d.q.Query(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return nil, translatePgError(ctx, err)
	}
	return &pgxRows{ctx: ctx, rows: rows}, nil
}

func (d *pgxDB) QueryRow(ctx context.Context, query string, args ...any) repository.Row {
	return &pgxRow{ctx: ctx, row: d.q.QueryRow(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)}
}

func (d *pgxDB) WithTx(ctx context.Context, fn func(tx repository.DB) error) error {
	if d.pool == nil {
		return fn(d)
	}
	err := pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		return fn(&pgxDB{q: tx})
	})
	return translatePgError(ctx, err)
}

type pgxRows struct {
	ctx  context.Context
	rows pgx.Rows
}

func (r *pgxRows) Next() bool { return r.rows.Next() }

func (r *pgxRows) Scan(dest ...any) error {
	return translatePgError(r.ctx, r.rows.Scan(dest...))
}

func (r *pgxRows) Err() error { return translatePgError(r.ctx, r.rows.Err()) }

func (r *pgxRows) Close() { r.rows.Close() }

type pgxRow struct {
	ctx context.Context
	row pgx.Row
}

func (r *pgxRow) Scan(dest ...any) error {
	return translatePgError(r.ctx, r.row.Scan(dest...))
}

// translatePgError maps driver failures onto repository sentinels.
func translatePgError(ctx context.Context, err error) error {
	if err == nil || isStoreError(err) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", repository.ErrInUse, pgErr.ConstraintName)
		case "57014":
			return fmt.Errorf("%w: %v", repository.ErrStoreTimeout, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", repository.ErrStoreTimeout, err)
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	return err
}

func isStoreError(err error) bool {
	for _, sentinel := range []error{
		repository.ErrNotFound,
		repository.ErrVersionConflict,
		repository.ErrDuplicate,
		repository.ErrInUse,
		repository.ErrStoreTimeout,
		repository.ErrStoreUnavailable,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
