package record

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below unwrap to these so callers can
// branch with errors.Is without importing the concrete types.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
)

// FieldError describes a validation failure on a single field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned by create and update when the resulting
// record would violate an invariant. Nothing is written when it occurs.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors (first: %s: %s)",
		len(e.Errors), e.Errors[0].Field, e.Errors[0].Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// NotFoundError is returned when an operation targets an id that does not
// exist or has been soft-deleted.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %s: not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError is returned when a compare-and-set write finds the record
// changed since the caller observed it. Nothing is written.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record %s: changed since observed", e.ID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether err is (or wraps) a not-found failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is (or wraps) a conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
