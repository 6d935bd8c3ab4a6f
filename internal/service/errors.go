package service

import (
	"errors"
	"fmt"

	"github.com/taskforge/task-manager/internal/repository"
	apperrors "github.com/taskforge/task-manager/pkg/util"
)

// storeError maps repository sentinels to domain errors for resource.
// Unknown errors pass through and surface as internal errors.
func storeError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict(fmt.Sprintf("%s was modified by another request", resource), nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewValidationError(fmt.Sprintf("%s already exists", resource), nil)
	case errors.Is(err, repository.ErrInUse):
		return apperrors.NewResourceInUse(resource)
	case errors.Is(err, repository.ErrStoreTimeout):
		return apperrors.NewStoreTimeout(err)
	case errors.Is(err, repository.ErrStoreUnavailable):
		return apperrors.NewStoreUnavailable(err)
	default:
		return err
	}
}
