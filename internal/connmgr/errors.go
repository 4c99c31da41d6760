package connmgr

import (
	"errors"
	"fmt"

	"github.com/roach88/ordercap/internal/order"
)

// ConfigError represents missing or invalid infrastructure configuration.
//
// Configuration errors are fatal and never retried: the manager fails
// closed, setting its status to StatusError and surfacing this error from
// every dependent call rather than silently degrading.
type ConfigError struct {
	// Setting names the missing configuration key.
	Setting string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Message)
}

// IsConfigError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// RetryError wraps the last error observed after the retry executor
// exhausted its attempts. The label identifies the operation for operators.
type RetryError struct {
	Label    string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Label, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// IsRetryExhausted returns true if the error came from an exhausted retry
// loop. Uses errors.As to handle wrapped errors.
func IsRetryExhausted(err error) bool {
	var re *RetryError
	return errors.As(err, &re)
}

// retryable reports whether an attempt error is worth repeating.
//
// Validation errors are payload defects - retrying cannot fix them.
// Configuration errors are fatal by contract. Everything else is treated
// as transient infrastructure failure (connection refused, timeout,
// SQLITE_BUSY) and retried up to the attempt budget.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if order.IsValidationError(err) || IsConfigError(err) {
		return false
	}
	return true
}
