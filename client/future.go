// File: client/future.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/momentics/slimsock/api"
)

// Future is the single outcome of one connect attempt.
type Future struct {
	once sync.Once
	done chan struct{}
	sock api.Socket
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// settle stores the outcome. Only the first call has an effect.
func (f *Future) settle(sock api.Socket, err error) bool {
	settled := false
	f.once.Do(func() {
		f.sock, f.err = sock, err
		settled = true
		close(f.done)
	})
	return settled
}

// Done is closed once the future has settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the future settles or ctx is done. A cancelled attempt
// yields api.ErrConnectCanceled.
func (f *Future) Await(ctx context.Context) (api.Socket, error) {
	select {
	case <-f.done:
		return f.sock, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome without blocking. ok is false while pending.
func (f *Future) Result() (sock api.Socket, ok bool, err error) {
	select {
	case <-f.done:
		return f.sock, true, f.err
	default:
		return nil, false, nil
	}
}

// Err returns the failure once settled, nil otherwise.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// FutureConnector wraps a Connector so each attempt returns a Future.
// Outcomes are also forwarded to the handler given with WithHandler, if any.
type FutureConnector struct {
	conn    *Connector
	user    Handler
	pending atomic.Pointer[Future]
}

// NewFutureConnector builds a FutureConnector over tr.
func NewFutureConnector(tr api.Transport, cfg *Config, opts ...Option) *FutureConnector {
	c := NewConnector(tr, cfg, opts...)
	return &FutureConnector{conn: c, user: c.handler}
}

// Connector returns the wrapped connector.
func (fc *FutureConnector) Connector() *Connector { return fc.conn }

// ConnectAsync starts an attempt and returns its future.
func (fc *FutureConnector) ConnectAsync() (*Future, error) {
	f := newFuture()
	if !fc.pending.CompareAndSwap(nil, f) {
		return nil, api.ErrAlreadyConnecting
	}
	err := fc.conn.connect(func(sock api.Socket, err error) { fc.finish(f, sock, err) })
	if err != nil {
		fc.pending.CompareAndSwap(f, nil)
		f.settle(nil, err)
		return nil, err
	}
	return f, nil
}

// StopConnecting cancels the pending future and aborts the attempt.
func (fc *FutureConnector) StopConnecting() bool {
	cancelled := false
	if f := fc.pending.Swap(nil); f != nil {
		cancelled = f.settle(nil, api.ErrConnectCanceled)
	}
	return fc.conn.StopConnecting() || cancelled
}

func (fc *FutureConnector) finish(f *Future, sock api.Socket, err error) {
	fc.pending.CompareAndSwap(f, nil)
	if err != nil {
		f.settle(nil, err)
		if fc.user != nil {
			fc.user.OnConnectFailed(fc.conn, err)
		}
		return
	}
	if !f.settle(sock, nil) {
		// Cancelled while the connect completed.
		_ = sock.Close()
		return
	}
	if fc.user != nil {
		fc.user.OnConnected(fc.conn, sock)
	}
}
