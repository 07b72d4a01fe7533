package scoring

import (
	"errors"
	"fmt"
)

// ErrNotInTable reports a lookup-table miss. The lookup evaluator is a
// controlled-input testing aid, so a miss is surfaced instead of defaulted.
var ErrNotInTable = errors.New("molecule not present in lookup table")

// Error is a scoring error carrying component and operation context.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	switch {
	case e.Component != "" && e.Op != "":
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	case e.Component != "":
		prefix = e.Component
	case e.Op != "":
		prefix = e.Op
	}
	switch {
	case e.Err != nil && prefix != "":
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case prefix != "":
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates a new scoring error with the given message.
func NewError(message string) *Error {
	return &Error{Message: message}
}

// Errorf creates a new scoring error with a formatted message.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with additional context. If err is nil,
// WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

// FatalError marks a misconfigured run: an unreadable or receptor-less
// design unit. It is not recoverable mid-run; callers are expected to abort
// on it rather than map it to a sentinel score.
type FatalError struct {
	Message string
	Err     error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal: %s: %v", e.Message, e.Err)
	}
	return "fatal: " + e.Message
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatalf creates a FatalError with a formatted message.
func Fatalf(format string, args ...interface{}) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...)}
}

// WrapFatal wraps err as a FatalError.
func WrapFatal(err error, message string) *FatalError {
	return &FatalError{Message: message, Err: err}
}

// IsFatal reports whether err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
