package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/taskforge/task-manager/internal/domain"
)

// LabelRepository manages labels.
type LabelRepository interface {
	List(ctx context.Context) ([]domain.Label, error)
	GetByID(ctx context.Context, id int64) (*domain.Label, error)
	// ExistingIDs returns the subset of ids that exist.
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
	Create(ctx context.Context, label *domain.Label) error
	Update(ctx context.Context, label *domain.Label) error
	Delete(ctx context.Context, id int64) error
}

type labelRepository struct {
	store
}

// NewLabelRepository builds the repository.
func NewLabelRepository(db DB, queryTimeout time.Duration) LabelRepository {
	return &labelRepository{store: newStore(db, queryTimeout)}
}

func (r *labelRepository) List(ctx context.Context) ([]domain.Label, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, "SELECT id, name, created_at FROM labels ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := []domain.Label{}
	for rows.Next() {
		var label domain.Label
		if err := rows.Scan(&label.ID, &label.Name, &label.CreatedAt); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func (r *labelRepository) GetByID(ctx context.Context, id int64) (*domain.Label, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var label domain.Label
	if err := r.db.QueryRow(ctx, "SELECT id, name, created_at FROM labels WHERE id = ?", id).
		Scan(&label.ID, &label.Name, &label.CreatedAt); err != nil {
		return nil, err
	}
	return &label, nil
}

func (r *labelRepository) ExistingIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	query, args, err := sqlx.In("SELECT id FROM labels WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}

func (r *labelRepository) Create(ctx context.Context, label *domain.Label) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return r.db.QueryRow(ctx,
		"INSERT INTO labels (name, created_at) VALUES (?, ?) RETURNING id",
		label.Name, label.CreatedAt,
	).Scan(&label.ID)
}

func (r *labelRepository) Update(ctx context.Context, label *domain.Label) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return affectOne(r.db.Exec(ctx, "UPDATE labels SET name = ? WHERE id = ?", label.Name, label.ID))
}

func (r *labelRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return affectOne(r.db.Exec(ctx, "DELETE FROM labels WHERE id = ?", id))
}
