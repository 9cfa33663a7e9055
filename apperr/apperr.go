// Package apperr defines the error taxonomy shared by the store, the
// submission lifecycle, the interaction router and the platform gateway.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies the error category.
type Code string

const (
	// Validation indicates bad user input.
	Validation Code = "VALIDATION"
	// NotFound indicates an unknown or already handled submission.
	NotFound Code = "NOT_FOUND"
	// Routing indicates a malformed or unrecognized correlation token.
	Routing Code = "ROUTING"
	// Forbidden indicates the user may not perform a moderation action.
	Forbidden Code = "FORBIDDEN"
	// Storage indicates the persistence medium failed.
	Storage Code = "STORAGE"
	// Gateway indicates a platform call failed or timed out.
	Gateway Code = "GATEWAY"
)

// Error is the application error type.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Recoverable reports whether err is caused by the user's input or by a
// stale interaction rather than by infrastructure.
func Recoverable(err error) bool {
	switch CodeOf(err) {
	case Validation, NotFound, Routing, Forbidden:
		return true
	}
	return false
}

// GenericFailure is shown for infrastructure failures.
const GenericFailure = "Could not process your request. Please try again later."

// UserMessage returns the private message shown to the user for err.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return GenericFailure
	}
	switch e.Code {
	case Validation:
		return e.Message
	case NotFound:
		return "This confession was not found. It may have already been handled."
	case Routing:
		return "Could not process this action."
	case Forbidden:
		return "You are not allowed to moderate confessions."
	default:
		return GenericFailure
	}
}
