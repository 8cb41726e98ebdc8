// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for slimsock.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidState    = fmt.Errorf("invalid state")

	// State errors. All of them match ErrInvalidState with errors.Is.
	ErrChannelClosed     = stateError("channel is closed")
	ErrNotStarted        = stateError("not started")
	ErrAlreadyStarted    = stateError("already started")
	ErrAlreadyConnecting = stateError("already connecting")
	ErrOperationInFlight = stateError("operation is in flight")

	ErrListenerClosed  = fmt.Errorf("listener is closed")
	ErrConnectCanceled = fmt.Errorf("connect canceled")
	ErrNotSupported    = fmt.Errorf("operation not supported")
)

func stateError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInvalidState)
}

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeInvalidState
	ErrCodeSocket
	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap attaches a cause to the error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsUsageError reports whether err was caused by calling an operation
// with a bad argument or in the wrong state.
func IsUsageError(err error) bool {
	if errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrInvalidState) {
		return true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == ErrCodeInvalidArgument || e.Code == ErrCodeInvalidState
	}
	return false
}
