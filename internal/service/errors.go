package service

import (
	"errors"

	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/repository"
	apperrors "github.com/fieldops/maintenance-service/pkg/util/errorutil"
)

// storeError translates repository sentinels into API errors. Anything
// unrecognised becomes an internal error that keeps the cause for logging.
func storeError(err error, resource string, details map[string]any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(resource+" was modified concurrently", details)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewValidationError(resource+" already exists", details)
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewInternalError(err)
}

// guardError converts a denied guard into the matching API error.
func guardError(result domain.GuardResult, details map[string]any) error {
	switch result.Denial {
	case domain.DenialForbidden:
		return apperrors.NewForbidden(result.Reason)
	case domain.DenialInvalidTransition:
		return apperrors.NewInvalidTransition(result.Reason, details)
	}
	return nil
}
