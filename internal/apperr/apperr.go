// Package apperr defines the error taxonomy shared by the ledger, code
// registry and claim workflow. Handlers convert these into structured user
// messages at the API boundary; anything else is treated as an internal
// failure for the request.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel lookup failures. A deactivated code is deliberately NOT one of
// these: callers must be able to tell "no such code" from "already claimed".
var (
	ErrCodeNotFound    = errors.New("code not found")
	ErrCodeInactive    = errors.New("code is deactivated")
	ErrEntryNotFound   = errors.New("storage entry not found")
	ErrProfileNotFound = errors.New("student profile not found")
)

// ValidationError reports a bad input shape or business rule violation,
// surfaced as a field-level message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for a field.
func Validation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports a state-machine violation on a storage
// entry, e.g. claiming an entry that is already claimed.
type InvalidTransitionError struct {
	Op   string // attempted operation
	From string // current status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s entry with status %q", e.Op, e.From)
}

// InvalidStateError reports that an operation found the entry in a status it
// cannot act on. Unlike InvalidTransitionError it names the observed status
// for the user-facing message.
type InvalidStateError struct {
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("entry is not active (status: %s)", e.Status)
}

// ConstraintViolation indicates an integrity problem, e.g. deleting an
// active entry or exhausting code-generation retries. These are programming
// errors, logged loudly and surfaced as internal failures.
type ConstraintViolation struct {
	Message string
}

func (e *ConstraintViolation) Error() string {
	return e.Message
}

// Constraint builds a ConstraintViolation.
func Constraint(format string, args ...any) *ConstraintViolation {
	return &ConstraintViolation{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStateError reports whether err is a transition or state violation.
func IsStateError(err error) bool {
	var te *InvalidTransitionError
	var se *InvalidStateError
	return errors.As(err, &te) || errors.As(err, &se)
}

// IsNotFound reports whether err is one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCodeNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrProfileNotFound)
}
