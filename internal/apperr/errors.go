// Package apperr holds the error taxonomy shared by repositories, services
// and handlers.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrStructureDegraded = errors.New("structure degraded")
	ErrAnalysisFailed    = errors.New("analysis failed")
	ErrPersistenceFailed = errors.New("persistence failed")

	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
)

// AnalysisError carries the reason an AI endpoint call failed.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("analysis failed: %s", e.Reason)
}

func (e *AnalysisError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrAnalysisFailed, e.Err}
	}
	return []error{ErrAnalysisFailed}
}

func Analysis(reason string, err error) error {
	return &AnalysisError{Reason: reason, Err: err}
}

// StatusCode maps an error to the HTTP status the API answers with.
func StatusCode(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrPersistenceFailed):
		return fiber.StatusConflict
	case errors.Is(err, ErrExtractionFailed):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrAnalysisFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
