// Package shared contains the domain error taxonomy used by student and dialogue.
// This package has zero external dependencies.
package shared

import (
	"context"
	"errors"
	"fmt"
)

// Base kinds, matched with errors.Is.
var (
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidFormat   = errors.New("invalid format")
	ErrValueOutOfRange = errors.New("value out of range")

	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	ErrTimeout = errors.New("operation timeout")
)

// DomainError carries the domain and operation that produced an error.
type DomainError struct {
	Domain  string // "student", "dialogue"
	Op      string // e.g. "Validate", "Transition"
	Kind    error  // base kind for errors.Is
	Message string
	Err     error // optional cause
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the cause, or the kind when there is none.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches both the kind and the cause.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// NewDomainError creates a domain error without a cause.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// Student errors
var (
	ErrInvalidUserID    = NewDomainError("student", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidName      = NewDomainError("student", "Validate", ErrInvalidFormat, "name must contain letters only")
	ErrScoreNotNumeric  = NewDomainError("student", "Validate", ErrInvalidFormat, "score is not an integer")
	ErrScoreOutOfRange  = NewDomainError("student", "Validate", ErrValueOutOfRange, "score must be between 0 and 100")
	ErrUnknownWriteMode = NewDomainError("student", "Validate", ErrInvalidInput, "unknown score write mode")
)

// Dialogue errors
var (
	ErrUnknownState = NewDomainError("dialogue", "Transition", ErrStateTransition, "unknown dialogue state")
	ErrMissingField = NewDomainError("dialogue", "Transition", ErrInvalidState, "pending field is missing")
)

// IsValidation reports whether err is a rejected user input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsTimeout reports whether err came from a deadline rather than the backend itself.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
