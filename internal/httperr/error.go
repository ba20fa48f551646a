// Package httperr classifies every failure on the request path into a closed
// set of kinds and renders them as uniform JSON bodies.
package httperr

import (
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-postboard/internal/validate"
)

// Error is a classified failure. Message, Location and Violations are sent to
// the client; Err is the cause and only ever logged.
type Error struct {
	Kind       Kind
	Message    string
	Location   string
	Violations validate.Violations
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status code the error renders with.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// WithLocation returns a copy of e pointing at the offending field or segment.
func (e *Error) WithLocation(location string) *Error {
	c := *e
	c.Location = location

	return &c
}

// New returns an error of kind with the kind's default message.
func New(kind Kind) *Error {
	return &Error{Kind: kind, Message: kind.Message()}
}

// Newf returns an error of kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as kind. The outward message stays the kind's default,
// so nothing from err reaches the client.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: kind.Message(), Err: err}
}

// Or returns value when ok, and a classified error with msg otherwise.
func Or[T any](value T, ok bool, kind Kind, msg string) (T, error) {
	if ok {
		return value, nil
	}

	var zero T

	return zero, Newf(kind, "%s", msg)
}

// Validation aggregates violations into a single bad request.
func Validation(violations validate.Violations) *Error {
	return &Error{
		Kind:       KindBadRequest,
		Message:    "Input validation error: [" + violations.String() + "]",
		Violations: violations,
	}
}

// As classifies any error. Errors that are already classified pass through;
// everything else becomes internal.
func As(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	return Wrap(KindInternal, err)
}
