package shared

import "errors"

var (
	// ErrValidation indicates malformed or missing input. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates the operation is not legal for the current
	// loan or shift status.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict indicates a uniqueness violation, such as opening a second
	// shift for an operator that already has one open.
	ErrConflict = errors.New("conflict")
	// ErrInvalidAmount indicates a non-positive monetary value.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrResourceExhausted indicates store capacity was exceeded. Callers may
	// retry with backoff.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrDuplicateTransaction indicates a transaction-number collision that
	// survived internal regeneration attempts.
	ErrDuplicateTransaction = errors.New("duplicate transaction number")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
