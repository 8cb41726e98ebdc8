// File: transport/tcp/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/momentics/slimsock/api"
)

// Socket is a completion socket over a net.Conn.
type Socket struct {
	tr      *Transport
	network string

	mu         sync.Mutex
	conn       net.Conn
	closed     bool
	noDelay    bool
	connecting bool
	cancelDial context.CancelFunc

	done      chan struct{}
	recvq     chan *api.Operation
	sendq     chan *api.Operation
	pumpsOnce sync.Once
}

func newSocket(tr *Transport, network string, conn net.Conn) *Socket {
	return &Socket{
		tr:      tr,
		network: network,
		conn:    conn,
		noDelay: tr.NoDelay,
		done:    make(chan struct{}),
		recvq:   make(chan *api.Operation, 1),
		sendq:   make(chan *api.Operation, 1),
	}
}

// ReceiveAsync reads up to op.Count bytes. End of stream completes with
// zero bytes and no error.
func (s *Socket) ReceiveAsync(op *api.Operation) (bool, error) {
	return s.submit("receive", s.recvq, op)
}

// SendAsync writes the whole region of op.
func (s *Socket) SendAsync(op *api.Operation) (bool, error) {
	return s.submit("send", s.sendq, op)
}

func (s *Socket) submit(name string, q chan *api.Operation, op *api.Operation) (bool, error) {
	if err := op.Begin(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		op.Cancel()
		return false, &api.SocketError{Op: name, Code: api.OperationAborted, Err: net.ErrClosed}
	case s.conn == nil:
		op.Cancel()
		return false, &api.SocketError{Op: name, Code: api.NotConnected}
	}
	s.pumpsOnce.Do(func() {
		go s.pump(s.recvq, s.read)
		go s.pump(s.sendq, s.write)
	})
	select {
	case q <- op:
		return true, nil
	default:
		op.Cancel()
		return false, fmt.Errorf("%s: %w", name, api.ErrOperationInFlight)
	}
}

func (s *Socket) pump(q chan *api.Operation, do func(*api.Operation)) {
	for {
		select {
		case op := <-q:
			do(op)
		case <-s.done:
			// Submission is refused once closed, so anything still queued is the last.
			select {
			case op := <-q:
				op.Complete(0, net.ErrClosed)
			default:
			}
			return
		}
	}
}

func (s *Socket) read(op *api.Operation) {
	n, err := s.conn.Read(op.Region())
	if n > 0 || errors.Is(err, io.EOF) {
		err = nil
	}
	op.Complete(n, err)
}

func (s *Socket) write(op *api.Operation) {
	n, err := s.conn.Write(op.Region())
	op.Complete(n, err)
}

// SetNoDelay toggles Nagle's algorithm. Before connecting the value is
// applied once the connection is established.
func (s *Socket) SetNoDelay(noDelay bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noDelay = noDelay
	if tc, ok := s.conn.(*net.TCPConn); ok {
		return tc.SetNoDelay(noDelay)
	}
	return nil
}

// ConnectAsync dials op.RemoteEndPoint. Close cancels the dial; a dial that
// completes after Close is torn down and reported as aborted.
func (s *Socket) ConnectAsync(op *api.Operation) (bool, error) {
	if !op.RemoteEndPoint.IsValid() {
		return false, fmt.Errorf("connect: %w", api.ErrInvalidArgument)
	}
	if err := op.Begin(); err != nil {
		return false, err
	}
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		op.Cancel()
		return false, &api.SocketError{Op: "connect", Code: api.OperationAborted, Err: net.ErrClosed}
	case s.conn != nil || s.connecting:
		s.mu.Unlock()
		op.Cancel()
		return false, fmt.Errorf("connect: %w", api.ErrAlreadyConnecting)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.connecting = true
	s.cancelDial = cancel
	s.mu.Unlock()

	go s.dial(ctx, cancel, op)
	return true, nil
}

func (s *Socket) dial(ctx context.Context, cancel context.CancelFunc, op *api.Operation) {
	defer cancel()
	d := net.Dialer{KeepAlive: s.tr.KeepAlive}
	conn, err := d.DialContext(ctx, s.network, op.RemoteEndPoint.String())

	s.mu.Lock()
	s.connecting = false
	s.cancelDial = nil
	if s.closed {
		if conn != nil {
			_ = conn.Close()
		}
		err = &net.OpError{Op: "dial", Net: s.network, Err: net.ErrClosed}
	} else if err == nil {
		s.conn = conn
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(s.noDelay)
		}
	}
	s.mu.Unlock()

	if err != nil {
		op.Complete(0, err)
		return
	}
	op.ConnectSocket = s
	op.Complete(0, nil)
}

// Shutdown disables one or both directions.
func (s *Socket) Shutdown(how api.ShutdownHow) error {
	s.mu.Lock()
	conn, closed := s.conn, s.closed
	s.mu.Unlock()
	if closed {
		return net.ErrClosed
	}
	if conn == nil {
		return &api.SocketError{Op: "shutdown", Code: api.NotConnected}
	}
	return shutdownConn(conn, how)
}

// Close releases the socket. Outstanding operations complete with
// OperationAborted; a second Close returns net.ErrClosed.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return net.ErrClosed
	}
	s.closed = true
	conn, cancel := s.conn, s.cancelDial
	close(s.done)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *Socket) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Socket) RemoteAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.RemoteAddr()
}

// Conn returns the underlying connection, nil before connect.
func (s *Socket) Conn() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

var _ api.ConnectSocket = (*Socket)(nil)
