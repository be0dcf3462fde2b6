// Package apperr defines the error kinds surfaced to clients over the
// socket contract. Use-cases return these; the dispatcher maps them to
// error events without leaking internals.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the wire-visible error class.
type Kind string

const (
	KindValidation        Kind = "ValidationError"
	KindNotFound          Kind = "NotFound"
	KindForbidden         Kind = "Forbidden"
	KindConflict          Kind = "Conflict"
	KindIllegalTransition Kind = "IllegalTransition"
	KindGraceExpired      Kind = "GraceExpired"
	KindCapacityExceeded  Kind = "CapacityExceeded"

	// KindInternal is what the socket edge reports for errors that carry no
	// domain kind. Never constructed by use-cases; internals stay internal.
	KindInternal Kind = "InternalError"
)

// Error is a client-safe domain error.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New creates an Error with an explicit kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return New(KindForbidden, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func IllegalTransition(format string, args ...any) *Error {
	return New(KindIllegalTransition, format, args...)
}

func GraceExpired(format string, args ...any) *Error {
	return New(KindGraceExpired, format, args...)
}

func CapacityExceeded(format string, args ...any) *Error {
	return New(KindCapacityExceeded, format, args...)
}

// KindOf extracts the kind from any error in the chain. Errors that are
// not an *Error report as internal and must not reach clients verbatim.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
