package services

import (
	"errors"
	"fmt"

	"rescuelink/internal/repositories/interfaces"
)

type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindForbidden    ErrorKind = "forbidden"
	KindConflict     ErrorKind = "conflict"
	KindInvalidState ErrorKind = "invalid_state"
	KindValidation   ErrorKind = "validation"
	KindDependency   ErrorKind = "dependency"
	KindInternal     ErrorKind = "internal"
)

// Error is the only error type services return to handlers. Message is safe
// to show to clients; Err is for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a sentinel of the same kind, so errors.Is(err, ErrNotFound) works
// for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrValidation   = &Error{Kind: KindValidation}
)

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func InvalidState(message string) *Error {
	return &Error{Kind: KindInvalidState, Message: message}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the kind of a service error, or KindInternal for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// lookupError maps a repository miss to NotFound and anything else to Internal.
func lookupError(err error, op, notFoundMessage string) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return NotFound(notFoundMessage)
	}
	return Internal(op, err)
}
