// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"net"
	"sync"

	"github.com/momentics/slimsock/api"
)

type acceptResult struct {
	sock api.Socket
	err  error
}

// Listener is a fake api.Listener driven by Push.
type Listener struct {
	mu sync.Mutex

	// Inline completes an accept synchronously when a result is queued.
	Inline bool
	submitErr error
	addr    net.Addr
	backlog int
	closed  bool
	hold    bool
	queued  []acceptResult
	pending []*api.Operation
	submits int
}

// NewListener creates a listener reporting addr.
func NewListener(addr net.Addr, backlog int) *Listener {
	return &Listener{addr: addr, backlog: backlog}
}

// Push delivers one accept outcome, to a pending accept if any.
func (l *Listener) Push(sock api.Socket, err error) {
	l.mu.Lock()
	if len(l.pending) == 0 {
		l.queued = append(l.queued, acceptResult{sock, err})
		l.mu.Unlock()
		return
	}
	op := l.pending[0]
	l.pending = l.pending[1:]
	l.mu.Unlock()
	op.AcceptSocket = sock
	op.Complete(0, err)
}

func (l *Listener) AcceptAsync(op *api.Operation) (bool, error) {
	if err := op.Begin(); err != nil {
		return false, err
	}
	l.mu.Lock()
	l.submits++
	if l.closed {
		l.mu.Unlock()
		op.Cancel()
		return false, &api.SocketError{Op: "accept", Code: api.OperationAborted, Err: api.ErrListenerClosed}
	}
	if err := l.submitErr; err != nil {
		l.mu.Unlock()
		op.Cancel()
		return false, err
	}
	if len(l.queued) == 0 {
		l.pending = append(l.pending, op)
		l.mu.Unlock()
		return true, nil
	}
	r := l.queued[0]
	l.queued = l.queued[1:]
	inline := l.Inline
	l.mu.Unlock()

	op.AcceptSocket = r.sock
	if inline {
		op.Finish(0, r.err)
		return false, nil
	}
	go op.Complete(0, r.err)
	return true, nil
}

// FailSubmits makes AcceptAsync fail synchronously with err; nil restores it.
func (l *Listener) FailSubmits(err error) {
	l.mu.Lock()
	l.submitErr = err
	l.mu.Unlock()
}

// Pending returns the number of outstanding accepts.
func (l *Listener) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Submits returns the number of AcceptAsync calls.
func (l *Listener) Submits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.submits
}

// HoldOnClose makes Close leave outstanding accepts pending until
// AbortPending is called.
func (l *Listener) HoldOnClose() {
	l.mu.Lock()
	l.hold = true
	l.mu.Unlock()
}

// AbortPending completes every outstanding accept with ErrListenerClosed.
func (l *Listener) AbortPending() {
	l.mu.Lock()
	ops := l.pending
	l.pending = nil
	l.mu.Unlock()
	for _, op := range ops {
		op.Complete(0, api.ErrListenerClosed)
	}
}

// Backlog returns the backlog passed to Listen.
func (l *Listener) Backlog() int { return l.backlog }

func (l *Listener) Addr() net.Addr { return l.addr }

// Close aborts outstanding accepts.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return net.ErrClosed
	}
	l.closed = true
	if l.hold {
		l.mu.Unlock()
		return nil
	}
	ops := l.pending
	l.pending = nil
	l.mu.Unlock()
	for _, op := range ops {
		op.Complete(0, api.ErrListenerClosed)
	}
	return nil
}

var _ api.Listener = (*Listener)(nil)
