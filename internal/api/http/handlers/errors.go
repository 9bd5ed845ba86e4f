package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/accomplishment-service/internal/api/dto"
	"github.com/spec-kit/accomplishment-service/internal/service"
	apperrors "github.com/spec-kit/accomplishment-service/pkg/util"
)

// mapServiceError translates service failures to client-facing errors.
// Anything unrecognised, including decode and crypto failures, stays an
// internal error.
func mapServiceError(err error) error {
	var (
		validationErr *service.ValidationError
		conflictErr   *service.ConflictError
		credErr       *service.InvalidCredentialsError
		lockedErr     *service.LockedError
	)
	switch {
	case errors.As(err, &validationErr):
		return apperrors.NewValidationError(validationErr.Message, map[string]any{"rule": validationErr.Rule})
	case errors.As(err, &conflictErr):
		return apperrors.NewConflict(conflictErr.Error(), map[string]any{"field": conflictErr.Field})
	case errors.As(err, &credErr):
		return apperrors.NewInvalidCredentials(map[string]any{
			"failed_attempts":    credErr.FailedAttempts,
			"remaining_attempts": credErr.RemainingAttempts,
		})
	case errors.As(err, &lockedErr):
		return apperrors.NewLocked("Account is locked. Try again later.", map[string]any{
			"lock_until": lockedErr.LockUntil.UTC().Format(time.RFC3339),
		})
	case errors.Is(err, service.ErrNotFound):
		return apperrors.NewNotFound("account", nil)
	default:
		return apperrors.NewInternalError(err)
	}
}

// parseBody decodes and validates a JSON payload.
func parseBody(c *fiber.Ctx, v *dto.Validator, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	fields, err := v.Struct(out)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid payload", map[string]any{"fields": fields})
	}
	return nil
}
