package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	apperrors "letterdesk/internal/errors"
)

// storeError translates repository errors into domain errors, keeping what
// failed in the message.
func storeError(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, apperrors.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, apperrors.ErrConflict)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s is still referenced: %w", what, apperrors.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, fmt.Sprintf(format, args...))
}
