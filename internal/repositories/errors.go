package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"alfredoptarigan/applicant-tracker/internal/apperr"
)

// translate maps gorm errors onto the application taxonomy.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: %v", op, apperr.ErrPersistenceFailed, err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
