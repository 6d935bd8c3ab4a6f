package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/taskforge/task-manager/internal/auth"
	"github.com/taskforge/task-manager/internal/clock"
	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/repository"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// StatusService manages the task workflow states.
type StatusService struct {
	statuses repository.StatusRepository
	clock    clock.Clock
}

// StatusInput names a status. Nil fields are left alone on update.
type StatusInput struct {
	Name *string
	Slug *string
}

// NewStatusService constructs the service.
func NewStatusService(statuses repository.StatusRepository, clk clock.Clock) *StatusService {
	if clk == nil {
		clk = clock.Real()
	}
	return &StatusService{statuses: statuses, clock: clk}
}

// List returns every status.
func (s *StatusService) List(ctx context.Context, principal auth.Principal) ([]domain.TaskStatus, error) {
	if err := auth.Authorize(principal, auth.ActionStatusRead, nil); err != nil {
		return nil, err
	}
	statuses, err := s.statuses.List(ctx)
	if err != nil {
		return nil, storeError(err, "task status")
	}
	return statuses, nil
}

// Get fetches one status.
func (s *StatusService) Get(ctx context.Context, principal auth.Principal, id int64) (*domain.TaskStatus, error) {
	if err := auth.Authorize(principal, auth.ActionStatusRead, nil); err != nil {
		return nil, err
	}
	status, err := s.statuses.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "task status")
	}
	return status, nil
}

// Create adds a status.
func (s *StatusService) Create(ctx context.Context, principal auth.Principal, input StatusInput) (*domain.TaskStatus, error) {
	if err := auth.Authorize(principal, auth.ActionStatusManage, nil); err != nil {
		return nil, err
	}
	return s.create(ctx, input)
}

// Seed creates the status unless its slug already exists.
func (s *StatusService) Seed(ctx context.Context, name, slug string) (*domain.TaskStatus, bool, error) {
	existing, err := s.statuses.GetBySlug(ctx, slug)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, storeError(err, "task status")
	}
	status, err := s.create(ctx, StatusInput{Name: &name, Slug: &slug})
	if err != nil {
		return nil, false, err
	}
	return status, true, nil
}

func (s *StatusService) create(ctx context.Context, input StatusInput) (*domain.TaskStatus, error) {
	status := &domain.TaskStatus{CreatedAt: s.clock.Now().UTC().Truncate(time.Microsecond)}
	if input.Name != nil {
		status.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		status.Slug = strings.TrimSpace(*input.Slug)
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	if err := s.statuses.Create(ctx, status); err != nil {
		return nil, storeError(err, "task status")
	}
	return status, nil
}

// Update renames a status.
func (s *StatusService) Update(ctx context.Context, principal auth.Principal, id int64, input StatusInput) (*domain.TaskStatus, error) {
	if err := auth.Authorize(principal, auth.ActionStatusManage, nil); err != nil {
		return nil, err
	}
	status, err := s.statuses.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "task status")
	}
	if input.Name != nil {
		status.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		status.Slug = strings.TrimSpace(*input.Slug)
	}
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	if err := s.statuses.Update(ctx, status); err != nil {
		return nil, storeError(err, "task status")
	}
	return status, nil
}

// Delete removes a status no task uses.
func (s *StatusService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	if err := auth.Authorize(principal, auth.ActionStatusManage, nil); err != nil {
		return err
	}
	return storeError(s.statuses.Delete(ctx, id), "task status")
}

func validateStatus(status *domain.TaskStatus) error {
	var issues []apperrors.FieldIssue
	if status.Name == "" {
		issues = append(issues, apperrors.FieldIssue{Field: "name", Message: "must not be blank"})
	}
	if !isSlug(status.Slug) {
		issues = append(issues, apperrors.FieldIssue{Field: "slug", Message: "must contain only lowercase letters, digits, '_' or '-'"})
	}
	if len(issues) > 0 {
		return apperrors.NewFieldValidationError(issues)
	}
	return nil
}

func isSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}
