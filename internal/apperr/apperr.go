// Package apperr defines the error kinds shared by the domain packages.
//
// Callers wrap one of the sentinel kinds with context using fmt.Errorf and %w,
// and the service layer maps the kind to a transport status code with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed or missing input. Nothing was written.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing balance, request, reminder or user.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an operation that is well-formed but no longer applies
	// to the current state (roles flipped, reminder already confirmed, ...).
	ErrConflict = errors.New("state conflict")

	// ErrForbidden marks an authenticated caller acting on something it may not touch.
	ErrForbidden = errors.New("forbidden")

	// ErrDependency marks a failure of an external collaborator such as the
	// hosted payment provider.
	ErrDependency = errors.New("dependency failure")
)

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries field-level messages and unwraps to ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError for one field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}

// NotFound wraps ErrNotFound with the kind and key of the missing record.
func NotFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, ErrNotFound)
}

// Conflict wraps ErrConflict with a human readable reason.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Forbidden wraps ErrForbidden with a reason.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}

// Dependency wraps err as an external collaborator failure.
func Dependency(name string, err error) error {
	return fmt.Errorf("%s: %w: %v", name, ErrDependency, err)
}
