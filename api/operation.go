// File: api/operation.go
// Author: momentics <momentics@gmail.com>
//
// Operation is the reusable completion buffer handed to asynchronous
// socket calls. It is owned by exactly one in-flight operation at a time.

package api

import (
	"net/netip"
	"sync/atomic"
)

// Operation carries the buffer region, the outcome and the completion
// callback of one asynchronous socket call.
type Operation struct {
	buf    []byte
	offset int
	count  int

	// Outcome, valid once the operation has completed.
	BytesTransferred int
	SocketError      SocketErrorCode
	Err              error

	// AcceptSocket receives the accepted connection of an accept.
	AcceptSocket Socket
	// ConnectSocket is the socket that finished a connect.
	ConnectSocket Socket
	// RemoteEndPoint is the target of a connect.
	RemoteEndPoint netip.AddrPort
	UserToken      any

	completed func(*Operation)
	inFlight  atomic.Bool
}

// NewOperation creates an operation over buf with the whole slice as region.
func NewOperation(buf []byte) *Operation {
	return &Operation{buf: buf, count: len(buf)}
}

// SetCompleted installs the completion callback.
func (o *Operation) SetCompleted(fn func(*Operation)) {
	o.completed = fn
}

// SetBuffer selects the region of the backing slice used by the next call.
// It panics when the operation is in flight.
func (o *Operation) SetBuffer(offset, count int) {
	if o.inFlight.Load() {
		panic("api: SetBuffer on in-flight operation")
	}
	if offset < 0 || count < 0 || offset+count > len(o.buf) {
		panic("api: SetBuffer region out of range")
	}
	o.offset, o.count = offset, count
}

// SetBufferSlice replaces the backing slice and selects all of it.
func (o *Operation) SetBufferSlice(buf []byte) {
	if o.inFlight.Load() {
		panic("api: SetBufferSlice on in-flight operation")
	}
	o.buf, o.offset, o.count = buf, 0, len(buf)
}

// Buffer returns the whole backing slice.
func (o *Operation) Buffer() []byte { return o.buf }

// Offset returns the start of the active region.
func (o *Operation) Offset() int { return o.offset }

// Count returns the length of the active region.
func (o *Operation) Count() int { return o.count }

// Region returns the active region.
func (o *Operation) Region() []byte { return o.buf[o.offset : o.offset+o.count] }

// Transferred returns the bytes moved by the last completion.
func (o *Operation) Transferred() []byte {
	return o.buf[o.offset : o.offset+o.BytesTransferred]
}

// InFlight reports whether a transport currently owns the operation.
func (o *Operation) InFlight() bool { return o.inFlight.Load() }

// Begin claims the operation for a transport call and clears the previous
// outcome. Transports call it before submitting.
func (o *Operation) Begin() error {
	if !o.inFlight.CompareAndSwap(false, true) {
		return ErrOperationInFlight
	}
	o.BytesTransferred = 0
	o.SocketError = SocketSuccess
	o.Err = nil
	return nil
}

// Cancel releases a claim taken with Begin when submission failed.
func (o *Operation) Cancel() {
	o.inFlight.Store(false)
}

// Finish records the outcome and releases ownership without running the
// callback. Transports use it for operations that completed synchronously.
func (o *Operation) Finish(n int, err error) {
	o.BytesTransferred = n
	o.Err = err
	o.SocketError = ClassifyError(err)
	o.inFlight.Store(false)
}

// Complete records the outcome, releases ownership and runs the callback.
func (o *Operation) Complete(n int, err error) {
	o.Finish(n, err)
	if fn := o.completed; fn != nil {
		fn(o)
	}
}

// Failure returns the outcome as a *SocketError named after op, or nil on success.
func (o *Operation) Failure(op string) *SocketError {
	switch {
	case o.SocketError == SocketSuccess && o.Err == nil:
		return nil
	case o.Err == nil:
		return &SocketError{Op: op, Code: o.SocketError}
	}
	se := NewSocketError(op, o.Err)
	se.Code = o.SocketError
	return se
}

// Error returns the outcome as an error, or nil on success.
func (o *Operation) Error() error {
	if se := o.Failure("complete"); se != nil {
		return se
	}
	return nil
}

// ResetSockets drops references to accepted or connected sockets.
func (o *Operation) ResetSockets() {
	o.AcceptSocket = nil
	o.ConnectSocket = nil
}
