package repository

import (
	"context"
	"time"

	"github.com/taskforge/task-manager/internal/domain"
)

// StatusRepository manages task statuses.
type StatusRepository interface {
	List(ctx context.Context) ([]domain.TaskStatus, error)
	GetByID(ctx context.Context, id int64) (*domain.TaskStatus, error)
	GetBySlug(ctx context.Context, slug string) (*domain.TaskStatus, error)
	Create(ctx context.Context, status *domain.TaskStatus) error
	Update(ctx context.Context, status *domain.TaskStatus) error
	Delete(ctx context.Context, id int64) error
}

type statusRepository struct {
	store
}

// NewStatusRepository builds the repository.
func NewStatusRepository(db DB, queryTimeout time.Duration) StatusRepository {
	return &statusRepository{store: newStore(db, queryTimeout)}
}

const statusSelect = `SELECT id, name, slug, created_at FROM task_statuses`

func (r *statusRepository) List(ctx context.Context) ([]domain.TaskStatus, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, statusSelect+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := []domain.TaskStatus{}
	for rows.Next() {
		var status domain.TaskStatus
		if err := rows.Scan(&status.ID, &status.Name, &status.Slug, &status.CreatedAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

func (r *statusRepository) GetByID(ctx context.Context, id int64) (*domain.TaskStatus, error) {
	return r.fetchSingle(ctx, statusSelect+" WHERE id = ?", id)
}

func (r *statusRepository) GetBySlug(ctx context.Context, slug string) (*domain.TaskStatus, error) {
	return r.fetchSingle(ctx, statusSelect+" WHERE slug = ?", slug)
}

func (r *statusRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.TaskStatus, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var status domain.TaskStatus
	if err := r.db.QueryRow(ctx, query, arg).Scan(&status.ID, &status.Name, &status.Slug, &status.CreatedAt); err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *statusRepository) Create(ctx context.Context, status *domain.TaskStatus) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return r.db.QueryRow(ctx,
		"INSERT INTO task_statuses (name, slug, created_at) VALUES (?, ?, ?) RETURNING id",
		status.Name, status.Slug, status.CreatedAt,
	).Scan(&status.ID)
}

func (r *statusRepository) Update(ctx context.Context, status *domain.TaskStatus) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return affectOne(r.db.Exec(ctx,
		"UPDATE task_statuses SET name = ?, slug = ? WHERE id = ?",
		status.Name, status.Slug, status.ID,
	))
}

func (r *statusRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return affectOne(r.db.Exec(ctx, "DELETE FROM task_statuses WHERE id = ?", id))
}
