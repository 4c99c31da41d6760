package order

import (
	"errors"
	"fmt"
)

// ValidationError represents a malformed order payload.
//
// Validation errors are fatal for the offending request: they are reported
// to the caller immediately and never retried, since retrying a malformed
// payload cannot succeed.
type ValidationError struct {
	// Field names the offending input field, when known.
	Field string

	// Message is a human-readable description.
	Message string

	// OrderID identifies the affected order, when one was assigned.
	OrderID string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid order payload: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid order payload: %s", e.Message)
}

// IsValidationError returns true if the error is a payload validation error.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NewValidationError creates a ValidationError for a specific field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
