// Package errors provides coded domain errors for the watch daemon.
//
// Usage:
//
//	// Where the failure happens - return a typed error
//	if mask == 0 {
//	    return errors.Configf("job %q: no known events", name)
//	}
//
//	// Where the failure is handled - check with errors.Is
//	if errors.Is(err, errors.ErrWatch) {
//	    log.Error("job not installed", "error", err)
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeStream:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the daemon.
const (
	// CodeConfig marks invalid configuration: a job or daemon setting that cannot be used.
	CodeConfig Code = "CONFIG"
	// CodeValidation marks a record that failed field validation.
	CodeValidation Code = "VALIDATION"
	// CodeWatch marks a failure registering a native watch.
	CodeWatch Code = "WATCH"
	// CodeSpawn marks a command that could not be started.
	CodeSpawn Code = "SPAWN"
	// CodeStream marks a failure reading the native event stream.
	CodeStream Code = "STREAM"
	CodeInternal Code = "INTERNAL"
)

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Details any
	cause   error
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrConfig     = &Error{Code: CodeConfig, Message: "invalid configuration"}
	ErrValidation = &Error{Code: CodeValidation, Message: "validation error"}
	ErrWatch      = &Error{Code: CodeWatch, Message: "watch registration failed"}
	ErrSpawn      = &Error{Code: CodeSpawn, Message: "command spawn failed"}
	ErrStream     = &Error{Code: CodeStream, Message: "event stream failed"}
	ErrInternal   = &Error{Code: CodeInternal, Message: "internal error"}
)

// Config creates a configuration error.
func Config(msg string) *Error {
	return &Error{Code: CodeConfig, Message: msg}
}

// Configf creates a configuration error with formatted message.
func Configf(format string, args ...any) *Error {
	return &Error{Code: CodeConfig, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
