package clinic

import (
	"errors"
	"fmt"
)

// Error kinds returned by the entity model and the registry. Match them with
// errors.Is; the concrete value is always an *Error.
var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicate         = errors.New("duplicate")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
)

// Error is a registry failure. Error() returns Message unchanged so shells
// can show it to users as-is.
type Error struct {
	Kind    error
	Field   string // set for validation failures
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// ValidationError is the failure returned by smart constructors and Validate.
type ValidationError = Error

func invalid(field, msg string) error {
	return &Error{Kind: ErrValidation, Field: field, Message: msg}
}

func duplicate(format string, args ...any) error {
	return &Error{Kind: ErrDuplicate, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func invalidTransition(msg string) error {
	return &Error{Kind: ErrInvalidTransition, Message: msg}
}
