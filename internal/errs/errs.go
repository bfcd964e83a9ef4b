// Package errs defines the error taxonomy shared across the service.
// Handlers map these sentinels onto HTTP statuses; everything else is
// treated as internal.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing required input. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing report, alert or relief center.
	ErrNotFound = errors.New("not found")

	// ErrInvalidAction marks an unrecognized lifecycle action.
	ErrInvalidAction = errors.New("invalid action")

	// ErrBackendUnavailable marks an owned store being unreachable.
	// Fatal for the current call; the client may retry.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrConflict marks a write that would duplicate existing state,
	// such as re-importing an already materialized external event.
	ErrConflict = errors.New("conflict")
)

// Wrap annotates err with the operation that failed.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Validation builds an ErrValidation with a caller-facing reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
