package repository

import (
	"context"
	"errors"
	"time"
)

// Store errors. Drivers translate engine-specific failures into these so
// services can map them without knowing which engine is in use.
var (
	ErrNotFound         = errors.New("repository: record not found")
	ErrVersionConflict  = errors.New("repository: version conflict")
	ErrDuplicate        = errors.New("repository: duplicate value")
	ErrInUse            = errors.New("repository: record is referenced")
	ErrStoreTimeout     = errors.New("repository: store timeout")
	ErrStoreUnavailable = errors.New("repository: store unavailable")
)

// DB is the handle repositories run SQL through. Statements use ?
// placeholders; drivers rebind them for their engine.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx DB) error) error
}

// Rows iterates a result set.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Row is a single-row result. Scan reports ErrNotFound for an empty result.
type Row interface {
	Scan(dest ...any) error
}

const defaultQueryTimeout = 5 * time.Second

// store carries what every repository shares.
type store struct {
	db      DB
	timeout time.Duration
}

func newStore(db DB, timeout time.Duration) store {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return store{db: db, timeout: timeout}
}

// bounded derives the per-call deadline.
func (s store) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// affectOne turns a zero row count into ErrNotFound.
func affectOne(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
