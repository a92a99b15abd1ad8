package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the services.  Handlers translate them with
// errors.Is; anything else is treated as a persistence failure.
var (
	ErrUnauthorised      = errors.New("unauthorised")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrRateLimited       = errors.New("rate limited")
	ErrPersistence       = errors.New("persistence failure")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotification      = errors.New("notification failure")
)

// ValidationError carries the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
