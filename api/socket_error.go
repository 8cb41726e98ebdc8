// File: api/socket_error.go
// Author: momentics <momentics@gmail.com>
//
// Socket outcome codes and the mapping from Go/OS errors onto them.

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
)

// SocketErrorCode is the outcome code carried by a completion buffer.
type SocketErrorCode int

const (
	SocketSuccess SocketErrorCode = iota
	ConnectionReset
	ConnectionRefused
	ConnectionAborted
	OperationAborted
	Shutdown
	NotConnected
	TimedOut
	HostUnreachable
	NetworkUnreachable
	AddressAlreadyInUse
	AddressNotAvailable
	SocketErrorOther
)

var socketErrorNames = [...]string{
	SocketSuccess:       "success",
	ConnectionReset:     "connection reset",
	ConnectionRefused:   "connection refused",
	ConnectionAborted:   "connection aborted",
	OperationAborted:    "operation aborted",
	Shutdown:            "shutdown",
	NotConnected:        "not connected",
	TimedOut:            "timed out",
	HostUnreachable:     "host unreachable",
	NetworkUnreachable:  "network unreachable",
	AddressAlreadyInUse: "address already in use",
	AddressNotAvailable: "address not available",
	SocketErrorOther:    "socket error",
}

func (c SocketErrorCode) String() string {
	if c >= 0 && int(c) < len(socketErrorNames) {
		return socketErrorNames[c]
	}
	return fmt.Sprintf("socket error %d", int(c))
}

// SocketError is an OS-level socket failure reported through a completion.
type SocketError struct {
	Op   string
	Code SocketErrorCode
	Err  error
}

func (e *SocketError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *SocketError) Unwrap() error { return e.Err }

// Is lets errors.Is match against a bare code carrier such as &SocketError{Code: ConnectionReset}.
func (e *SocketError) Is(target error) bool {
	t, ok := target.(*SocketError)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Code == e.Code
}

// NewSocketError classifies err and wraps it. Returns nil for a nil err.
func NewSocketError(op string, err error) *SocketError {
	if err == nil {
		return nil
	}
	var se *SocketError
	if errors.As(err, &se) {
		return &SocketError{Op: op, Code: se.Code, Err: se.Err}
	}
	return &SocketError{Op: op, Code: ClassifyError(err), Err: err}
}

// CodeOf is ClassifyError for errors returned by this package.
func CodeOf(err error) SocketErrorCode {
	return ClassifyError(err)
}

// ClassifyError maps a Go or OS error onto a SocketErrorCode.
func ClassifyError(err error) SocketErrorCode {
	var se *SocketError
	if errors.As(err, &se) {
		return se.Code
	}
	switch {
	case err == nil:
		return SocketSuccess
	case errors.Is(err, net.ErrClosed), errors.Is(err, context.Canceled),
		errors.Is(err, ErrListenerClosed), errors.Is(err, ErrConnectCanceled):
		return OperationAborted
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return TimedOut
	case errors.Is(err, io.ErrClosedPipe):
		return Shutdown
	}
	if code, ok := classifyErrno(err); ok {
		return code
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return TimedOut
	}
	return SocketErrorOther
}
