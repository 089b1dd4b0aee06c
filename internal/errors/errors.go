// Package errors defines the error kinds the storefront maps onto HTTP
// responses.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrNotFound     = stderrors.New("not found")
	ErrUnauthorized = stderrors.New("unauthorized")
	ErrConflict     = stderrors.New("conflict")
)

// ValidationError reports invalid user input.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return stderrors.As(err, &ve)
}

func New(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target interface{}) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// Error pairs a message that is safe to show a shopper with one of the
// sentinel kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Wrap returns an error of the given kind carrying message.
func Wrap(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Message returns the shopper-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve.Message
	}
	return fallback
}
