// File: transport/tcp/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"fmt"
	"net"
	"sync"

	"github.com/momentics/slimsock/api"
)

// Listener is a completion listener. One accept may be outstanding.
type Listener struct {
	tr      *Transport
	ln      net.Listener
	backlog int

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	acceptq  chan *api.Operation
	pumpOnce sync.Once
}

func newListener(tr *Transport, ln net.Listener, backlog int) *Listener {
	return &Listener{
		tr:      tr,
		ln:      ln,
		backlog: backlog,
		done:    make(chan struct{}),
		acceptq: make(chan *api.Operation, 1),
	}
}

// AcceptAsync accepts the next connection into op.AcceptSocket.
func (l *Listener) AcceptAsync(op *api.Operation) (bool, error) {
	if err := op.Begin(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		op.Cancel()
		return false, &api.SocketError{Op: "accept", Code: api.OperationAborted, Err: api.ErrListenerClosed}
	}
	l.pumpOnce.Do(func() { go l.pump() })
	select {
	case l.acceptq <- op:
		return true, nil
	default:
		op.Cancel()
		return false, fmt.Errorf("accept: %w", api.ErrOperationInFlight)
	}
}

func (l *Listener) pump() {
	for {
		select {
		case op := <-l.acceptq:
			l.accept(op)
		case <-l.done:
			select {
			case op := <-l.acceptq:
				op.Complete(0, api.ErrListenerClosed)
			default:
			}
			return
		}
	}
}

// accept completes op on its own goroutine so the pump can take the next
// accept while the result is being handled.
func (l *Listener) accept(op *api.Operation) {
	conn, err := l.ln.Accept()
	if err == nil {
		op.AcceptSocket = l.tr.Wrap(conn)
	}
	go op.Complete(0, err)
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Backlog returns the backlog passed to listen.
func (l *Listener) Backlog() int { return l.backlog }

// Close stops listening. A pending accept completes with OperationAborted.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return net.ErrClosed
	}
	l.closed = true
	close(l.done)
	l.mu.Unlock()
	return l.ln.Close()
}

var _ api.Listener = (*Listener)(nil)
