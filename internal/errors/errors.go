// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors are used by use cases and
// mapped to safe, public messages at the application edge.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDatabase indicates the document store failed or was unreachable.
	ErrDatabase = errors.New("database error")

	// ErrInternal indicates a server-side fault (encryption, secrets, invariants).
	ErrInternal = errors.New("internal error")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// PostCommitSideEffectError reports that the primary write was committed but a
// non-transactional follow-up failed. The write is not rolled back; callers should
// treat the operation as a degraded success.
type PostCommitSideEffectError struct {
	Op  string
	Err error
}

func (e *PostCommitSideEffectError) Error() string {
	return fmt.Sprintf("%s: post-commit side effect failed: %v", e.Op, e.Err)
}

func (e *PostCommitSideEffectError) Unwrap() error {
	return e.Err
}

// IsDegradedSuccess reports whether err only signals a failed post-commit side effect.
func IsDegradedSuccess(err error) bool {
	var sideEffectErr *PostCommitSideEffectError
	return errors.As(err, &sideEffectErr)
}

// Class is the coarse category a caller-facing layer maps an error to.
type Class string

const (
	ClassNotFound     Class = "not_found"
	ClassConflict     Class = "conflict"
	ClassInvalidInput Class = "invalid_input"
	ClassInternal     Class = "internal"
)

// Public returns a class and a message that are safe to expose to callers.
// Internal faults collapse to a generic message so that ciphertext, key
// identifiers and key material never leak.
func Public(err error) (Class, string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, ErrNotFound):
		return ClassNotFound, "the requested resource could not be found"
	case errors.Is(err, ErrConflict):
		return ClassConflict, "the resource already exists"
	case errors.Is(err, ErrInvalidInput):
		return ClassInvalidInput, "the request is invalid"
	default:
		return ClassInternal, "an internal error occurred"
	}
}
