package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taskforge/task-manager/internal/auth"
	"github.com/taskforge/task-manager/internal/clock"
	"github.com/taskforge/task-manager/internal/domain"
	"github.com/taskforge/task-manager/internal/repository"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// Label names are between these lengths in characters.
const (
	labelNameMin = 3
	labelNameMax = 1000
)

// LabelService manages labels.
type LabelService struct {
	labels repository.LabelRepository
	clock  clock.Clock
}

// NewLabelService constructs the service.
func NewLabelService(labels repository.LabelRepository, clk clock.Clock) *LabelService {
	if clk == nil {
		clk = clock.Real()
	}
	return &LabelService{labels: labels, clock: clk}
}

// List returns every label.
func (s *LabelService) List(ctx context.Context, principal auth.Principal) ([]domain.Label, error) {
	if err := auth.Authorize(principal, auth.ActionLabelRead, nil); err != nil {
		return nil, err
	}
	labels, err := s.labels.List(ctx)
	if err != nil {
		return nil, storeError(err, "label")
	}
	return labels, nil
}

// Get fetches one label.
func (s *LabelService) Get(ctx context.Context, principal auth.Principal, id int64) (*domain.Label, error) {
	if err := auth.Authorize(principal, auth.ActionLabelRead, nil); err != nil {
		return nil, err
	}
	label, err := s.labels.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "label")
	}
	return label, nil
}

// Create adds a label.
func (s *LabelService) Create(ctx context.Context, principal auth.Principal, name string) (*domain.Label, error) {
	if err := auth.Authorize(principal, auth.ActionLabelManage, nil); err != nil {
		return nil, err
	}
	return s.create(ctx, name)
}

// Seed creates the label unless one with the same name exists.
func (s *LabelService) Seed(ctx context.Context, name string) (*domain.Label, bool, error) {
	existing, err := s.labels.List(ctx)
	if err != nil {
		return nil, false, storeError(err, "label")
	}
	for i := range existing {
		if existing[i].Name == name {
			return &existing[i], false, nil
		}
	}
	label, err := s.create(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return label, true, nil
}

func (s *LabelService) create(ctx context.Context, name string) (*domain.Label, error) {
	label := &domain.Label{
		Name:      strings.TrimSpace(name),
		CreatedAt: s.clock.Now().UTC().Truncate(time.Microsecond),
	}
	if err := validateLabelName(label.Name); err != nil {
		return nil, err
	}
	if err := s.labels.Create(ctx, label); err != nil {
		return nil, storeError(err, "label")
	}
	return label, nil
}

// Update renames a label.
func (s *LabelService) Update(ctx context.Context, principal auth.Principal, id int64, name string) (*domain.Label, error) {
	if err := auth.Authorize(principal, auth.ActionLabelManage, nil); err != nil {
		return nil, err
	}
	label, err := s.labels.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "label")
	}
	label.Name = strings.TrimSpace(name)
	if err := validateLabelName(label.Name); err != nil {
		return nil, err
	}
	if err := s.labels.Update(ctx, label); err != nil {
		return nil, storeError(err, "label")
	}
	return label, nil
}

// Delete removes a label no task carries.
func (s *LabelService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	if err := auth.Authorize(principal, auth.ActionLabelManage, nil); err != nil {
		return err
	}
	return storeError(s.labels.Delete(ctx, id), "label")
}

func validateLabelName(name string) error {
	if n := utf8.RuneCountInString(name); n < labelNameMin || n > labelNameMax {
		return apperrors.NewFieldValidationError([]apperrors.FieldIssue{{
			Field:   "name",
			Message: "must be between 3 and 1000 characters",
		}})
	}
	return nil
}
