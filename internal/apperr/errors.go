// Package apperr defines the error taxonomy shared by jobs, previews and
// dependency management.
//
// Every error carries a Kind and a safe, human-readable Message that may be
// shown to users. Diagnostic detail lives in the wrapped error and is only
// ever logged.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindUnavailableTool means an external binary is missing or cannot report its version.
	KindUnavailableTool Kind = "unavailable_tool"
	// KindInvalidInput means parameters were rejected before anything was spawned.
	KindInvalidInput Kind = "invalid_input"
	// KindProcessFailure means a child process exited non-zero or its output could not be read.
	KindProcessFailure Kind = "process_failure"
	// KindCancelled means the caller terminated the operation.
	KindCancelled Kind = "cancelled"
	// KindIO means a file or socket operation failed outside the process path.
	KindIO Kind = "io_failure"
)

// Error is a classified failure with a user-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error returns the safe message. The wrapped error is deliberately not
// included; use Detail for logs.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Detail returns the safe message followed by the wrapped diagnostic error.
func (e *Error) Detail() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// New creates an error of the given kind without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind with a safe message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-safe message for err. Unclassified errors map to a
// generic text so internal detail never leaks.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}

// Detail returns the most descriptive text available for logging.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
