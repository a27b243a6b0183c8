// Package errors defines the error values returned by pools, the client pool,
// configuration loading and the CLI.
//
// Every failure carries an ErrorType so callers can branch on the kind of
// failure (a refused checkout, a disposed pool, a bad argument) without
// matching message text. Details hold the structured context, such as the
// pool that refused a checkout or the argument that was rejected.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType is the kind of failure.
type ErrorType string

const (
	// ErrorTypeInternal is a failure inside the library, such as a
	// panicking Release during Dispose.
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation is a nil generator, nil work, negative limit or
	// other bad argument.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeLimit is a checkout refused because the pool already holds
	// its limit of objects.
	ErrorTypeLimit ErrorType = "limit"
	// ErrorTypeClosed is a checkout from a disposed pool or registry.
	ErrorTypeClosed ErrorType = "closed"
	// ErrorTypeConfig is an unreadable or invalid configuration.
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeConnection is a failed dial or body read by a pooled client.
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeTimeout is a request that ran past its client timeout.
	ErrorTypeTimeout ErrorType = "timeout"
)

// Error is a typed failure with optional cause and details.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	// Stack is where the first Error in a chain was created.
	Stack []StackFrame
}

// StackFrame is one call site of Error.Stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail records key=value on e and returns e for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail looks up a value recorded with WithDetail.
func (e *Error) Detail(key string) (interface{}, bool) {
	v, ok := e.Details[key]
	return v, ok
}

// New returns an Error of kind errType.
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message, Stack: stack(1)}
}

// Wrap returns an Error of kind errType caused by err, or nil when err is
// nil. When err already contains an Error its stack is kept, so the stack
// always points at the original failure.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	wrapped := &Error{Type: errType, Message: message, Cause: err}
	if inner, ok := As(err); ok {
		wrapped.Stack = inner.Stack
	} else {
		wrapped.Stack = stack(1)
	}
	return wrapped
}

// IsRetryable reports whether trying again later may succeed: a refused
// checkout (other callers will return their objects), a timeout or a
// connection failure.
func IsRetryable(err error) bool {
	e, ok := As(err)
	if !ok {
		return false
	}
	switch e.Type {
	case ErrorTypeLimit, ErrorTypeTimeout, ErrorTypeConnection:
		return true
	}
	return false
}

// IsType reports whether the first Error in err's chain is of kind errType.
func IsType(err error, errType ErrorType) bool {
	e, ok := As(err)
	return ok && e.Type == errType
}

// As returns the first Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

const maxStackDepth = 32

// stack records the call stack above its caller, dropping skip more frames.
func stack(skip int) []StackFrame {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	out := make([]StackFrame, 0, n)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		out = append(out, StackFrame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return out
}
