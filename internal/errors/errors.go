// Package errors provides the failure-boundary helpers shared across the
// command loop: panic capture, transient-error tagging, and multi-error
// aggregation for shutdown paths.
package errors

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// PanicError wraps a recovered panic with its stack trace so the boundary
// that caught it can log something actionable.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover runs fn and converts a panic into a *PanicError instead of
// unwinding past the caller.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Value:      r,
				StackTrace: string(debug.Stack()),
			}
		}
	}()
	return fn()
}

// TransientError marks a failure as retryable. Op names the operation that
// failed so retry logs read sensibly.
type TransientError struct {
	Op  string
	Err error
}

func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// MultiError collects errors from multi-step teardown so a single failing
// step does not mask the others.
type MultiError struct {
	Errors []error
}

// Append adds a non-nil error to the collection.
func (m *MultiError) Append(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil when no errors were collected, the sole error when
// there is exactly one, and the MultiError itself otherwise.
func (m *MultiError) ErrorOrNil() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}

func (m *MultiError) Error() string {
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors: %s", len(m.Errors), strings.Join(msgs, "; "))
}
