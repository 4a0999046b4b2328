// Package domain holds the error taxonomy and input rules shared by the
// social service's components.
package domain

import "errors"

var (
	// ErrUnauthorized means no actor was present where one is required.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the actor is present but does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrSelfReference rejects following oneself.
	ErrSelfReference = errors.New("cannot follow self")
	// ErrValidation wraps every input rule violation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means the target does not exist or is not visible to the actor.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a uniqueness violation the user must resolve (e.g. username taken).
	ErrConflict = errors.New("conflict")
	// ErrConflictIgnored marks a duplicate toggle absorbed as a no-op. It is
	// recorded on results and in metrics, never returned to callers.
	ErrConflictIgnored = errors.New("duplicate toggle ignored")
)

// ValidationError carries the offending field and a user-facing reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
