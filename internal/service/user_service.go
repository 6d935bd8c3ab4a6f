package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taskforge/task-manager/internal/auth"
	"github.com/taskforge/task-manager/internal/clock"
	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/repository"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// UserService manages user accounts.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	clock      clock.Clock
	logger     *zap.Logger
}

// UserCreateInput describes a new account.
type UserCreateInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
}

// UserUpdateInput is a partial update; nil fields are left alone.
type UserUpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Password  *string
	Role      *domain.Role
	Version   *int64
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, bcryptCost int, clk clock.Clock, logger *zap.Logger) *UserService {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, bcryptCost: bcryptCost, clock: clk, logger: logger}
}

// List returns every user.
func (s *UserService) List(ctx context.Context, principal auth.Principal) ([]domain.User, error) {
	if err := auth.Authorize(principal, auth.ActionUserRead, nil); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return users, nil
}

// Get fetches one user.
func (s *UserService) Get(ctx context.Context, principal auth.Principal, id int64) (*domain.User, error) {
	if err := auth.Authorize(principal, auth.ActionUserRead, nil); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

// Create registers an account. Only administrators may call it.
func (s *UserService) Create(ctx context.Context, principal auth.Principal, input UserCreateInput) (*domain.User, error) {
	if err := auth.Authorize(principal, auth.ActionUserCreate, nil); err != nil {
		return nil, err
	}
	return s.create(ctx, input)
}

// Seed creates an account without an acting principal. Used by the seeder.
func (s *UserService) Seed(ctx context.Context, input UserCreateInput) (*domain.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(input.Email))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, storeError(err, "user")
	}
	user, err := s.create(ctx, input)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *UserService) create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, apperrors.NewFieldValidationError([]apperrors.FieldIssue{{Field: "role", Message: "must be user or admin"}})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now()
	user := &domain.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, userStoreError(err)
	}
	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Update changes an account. Users may edit themselves; only an
// administrator may change a role.
func (s *UserService) Update(ctx context.Context, principal auth.Principal, id int64, input UserUpdateInput) (*domain.User, error) {
	if err := auth.Authorize(principal, auth.ActionUserUpdate, &auth.Resource{OwnerID: id}); err != nil {
		return nil, err
	}
	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "user")
	}

	updated := *current
	if input.FirstName != nil {
		updated.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updated.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		updated.Email = normalizeEmail(*input.Email)
	}
	if input.Role != nil && *input.Role != current.Role {
		if !principal.IsAdmin() {
			return nil, apperrors.NewForbidden("only an administrator may change roles")
		}
		if !input.Role.Valid() {
			return nil, apperrors.NewFieldValidationError([]apperrors.FieldIssue{{Field: "role", Message: "must be user or admin"}})
		}
		updated.Role = *input.Role
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		updated.PasswordHash = hash
	}

	expected := current.Version
	if input.Version != nil {
		expected = *input.Version
	}
	updated.UpdatedAt = s.now()

	if err := s.users.Update(ctx, &updated, expected); err != nil {
		return nil, userStoreError(err)
	}
	return &updated, nil
}

// Delete removes an account. Accounts still referenced by tasks cannot be
// deleted.
func (s *UserService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	if err := auth.Authorize(principal, auth.ActionUserDelete, &auth.Resource{OwnerID: id}); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return storeError(err, "user")
	}
	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("actor_id", principal.SubjectID))
	return nil
}

func (s *UserService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func userStoreError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewFieldValidationError([]apperrors.FieldIssue{{Field: "email", Message: "is already registered"}})
	}
	return storeError(err, "user")
}
