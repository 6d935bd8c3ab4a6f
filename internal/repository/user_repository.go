package repository

import (
	"context"
	"time"

	"github.com/taskforge/task-manager/internal/domain"
)

// UserRepository defines persistence access for user accounts.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	// Update writes user if the stored version still equals expectedVersion.
	Update(ctx context.Context, user *domain.User, expectedVersion int64) error
	Delete(ctx context.Context, id int64) error
}

type userRepository struct {
	store
}

// NewUserRepository returns a repository bounded by queryTimeout per call.
func NewUserRepository(db DB, queryTimeout time.Duration) UserRepository {
	return &userRepository{store: newStore(db, queryTimeout)}
}

const userSelect = `
        SELECT id, first_name, last_name, email, password_hash, role, version, created_at, updated_at
        FROM users`

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, userSelect+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, userSelect+" WHERE id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, userSelect+" WHERE email = ?", email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	ctx, cancel := r.bounded(ctx)
	defer cancel()

	var user domain.User
	if err := scanUser(r.db.QueryRow(ctx, query, arg), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, password_hash, role, version, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, 1, ?, ?)
        RETURNING id`

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	if err := r.db.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return err
	}
	user.Version = 1
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User, expectedVersion int64) error {
	const query = `
        UPDATE users SET first_name = ?, last_name = ?, email = ?, password_hash = ?, role = ?,
            version = version + 1, updated_at = ?
        WHERE id = ? AND version = ?`

	ctx, cancel := r.bounded(ctx)
	defer cancel()

	return r.db.WithTx(ctx, func(tx DB) error {
		n, err := tx.Exec(ctx, query,
			user.FirstName,
			user.LastName,
			user.Email,
			user.PasswordHash,
			string(user.Role),
			user.UpdatedAt,
			user.ID,
			expectedVersion,
		)
		if err != nil {
			return err
		}
		if n == 0 {
			return missingOrStale(ctx, tx, "SELECT 1 FROM users WHERE id = ?", user.ID)
		}
		user.Version = expectedVersion + 1
		return nil
	})
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.bounded(ctx)
	defer cancel()
	return affectOne(r.db.Exec(ctx, "DELETE FROM users WHERE id = ?", id))
}

func scanUser(row Row, user *domain.User) error {
	var role string
	if err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.Version,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return err
	}
	user.Role = domain.Role(role)
	return nil
}
