// Package apperr defines the service-level error taxonomy. Handlers map
// NotFoundError to 404 and ValidationError to 400; everything else is logged
// and surfaced as an opaque 500.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError means a referenced device/product/order does not exist, or is
// inactive where activity is required.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return e.Msg
}

// NotFoundf creates a NotFoundError with a formatted message
func NotFoundf(format string, args ...interface{}) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError means a business rule was violated: insufficient inventory,
// no active assignment, terminal-state transition, malformed input. The
// triggering transaction is rolled back entirely.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf creates a ValidationError with a formatted message
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsValidation reports whether err wraps a ValidationError
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}
