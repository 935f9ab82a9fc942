package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so handlers can map it to an HTTP status.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInvalidState
	KindNotFound
	KindConflict
	KindPrecondition
	KindInsufficientStock
)

// Error is a domain error carrying a kind and a human-readable message.
// All domain errors are terminal to the triggering request; nothing retries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two apperr errors by kind so services can use sentinel values
// with errors.Is while still attaching per-call detail.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newf(KindInvalidState, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

func Precondition(format string, args ...interface{}) *Error {
	return newf(KindPrecondition, format, args...)
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return newf(KindInsufficientStock, format, args...)
}

// KindOf extracts the kind from an error chain, KindUnknown when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps a domain error to the status the API surfaces.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return 400
	case KindNotFound:
		return 404
	case KindInvalidState, KindConflict, KindInsufficientStock:
		return 409
	case KindPrecondition:
		return 412
	default:
		return 500
	}
}
