// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"bytes"
	"net"
	"sync"

	"github.com/momentics/slimsock/api"
)

// Addr is a fixed net.Addr.
type Addr string

func (a Addr) Network() string { return "fake" }
func (a Addr) String() string  { return string(a) }

// Socket is a fake api.ConnectSocket. Incoming data is fed by the test;
// outgoing data is recorded.
type Socket struct {
	mu sync.Mutex

	// Inline makes operations that can finish immediately complete
	// synchronously (pending=false, no callback).
	Inline bool
	// HoldSends keeps sends pending until CompleteSend.
	HoldSends bool
	// OnSent runs after a send has been written, before it completes.
	OnSent func()

	closed   bool
	noDelay  bool
	incoming [][]byte
	recvErr  error
	eof      bool
	written  bytes.Buffer
	sendErr  error
	sends    int
	sizes    []int

	pendingRecv    *api.Operation
	pendingSend    *api.Operation
	pendingConnect *api.Operation

	shutdowns []api.ShutdownHow
	closes    int
}

// NewSocket creates an open fake socket.
func NewSocket() *Socket { return &Socket{} }

// Feed delivers data to the receive side.
func (s *Socket) Feed(data []byte) {
	s.mu.Lock()
	s.incoming = append(s.incoming, bytes.Clone(data))
	op := s.pendingRecv
	if op == nil {
		s.mu.Unlock()
		return
	}
	s.pendingRecv = nil
	n := s.fillLocked(op)
	s.mu.Unlock()
	op.Complete(n, nil)
}

// FeedEOF delivers an orderly end of stream.
func (s *Socket) FeedEOF() {
	s.mu.Lock()
	s.eof = true
	op := s.pendingRecv
	s.pendingRecv = nil
	s.mu.Unlock()
	if op != nil {
		op.Complete(0, nil)
	}
}

// FeedError fails the receive side with err.
func (s *Socket) FeedError(err error) {
	s.mu.Lock()
	s.recvErr = err
	op := s.pendingRecv
	s.pendingRecv = nil
	s.mu.Unlock()
	if op != nil {
		op.Complete(0, err)
	}
}

// FailSends makes every following send fail with err.
func (s *Socket) FailSends(err error) {
	s.mu.Lock()
	s.sendErr = err
	s.mu.Unlock()
}

func (s *Socket) fillLocked(op *api.Operation) int {
	region := op.Region()
	n := 0
	for n < len(region) && len(s.incoming) > 0 {
		c := copy(region[n:], s.incoming[0])
		n += c
		if c == len(s.incoming[0]) {
			s.incoming = s.incoming[1:]
		} else {
			s.incoming[0] = s.incoming[0][c:]
		}
	}
	return n
}

func (s *Socket) aborted(op string) error {
	return &api.SocketError{Op: op, Code: api.OperationAborted, Err: net.ErrClosed}
}

func (s *Socket) ReceiveAsync(op *api.Operation) (bool, error) {
	if err := op.Begin(); err != nil {
		return false, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		op.Cancel()
		return false, s.aborted("receive")
	}
	var (
		n     int
		err   error
		ready = true
	)
	switch {
	case len(s.incoming) > 0:
		n = s.fillLocked(op)
	case s.recvErr != nil:
		err = s.recvErr
	case s.eof:
	default:
		ready = false
		s.pendingRecv = op
	}
	inline := s.Inline
	s.mu.Unlock()

	if !ready {
		return true, nil
	}
	if inline {
		op.Finish(n, err)
		return false, nil
	}
	go op.Complete(n, err)
	return true, nil
}

func (s *Socket) SendAsync(op *api.Operation) (bool, error) {
	if err := op.Begin(); err != nil {
		return false, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		op.Cancel()
		return false, s.aborted("send")
	}
	s.sends++
	if err := s.sendErr; err != nil {
		s.mu.Unlock()
		go op.Complete(0, err)
		return true, nil
	}
	if s.HoldSends {
		s.pendingSend = op
		s.mu.Unlock()
		return true, nil
	}
	s.written.Write(op.Region())
	s.sizes = append(s.sizes, op.Count())
	inline, hook := s.Inline, s.OnSent
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	n := op.Count()
	if inline {
		op.Finish(n, nil)
		return false, nil
	}
	go op.Complete(n, nil)
	return true, nil
}

// CompleteSend finishes a held send. It reports false when none is pending.
func (s *Socket) CompleteSend() bool {
	s.mu.Lock()
	op := s.pendingSend
	if op == nil {
		s.mu.Unlock()
		return false
	}
	s.pendingSend = nil
	s.written.Write(op.Region())
	s.sizes = append(s.sizes, op.Count())
	s.mu.Unlock()
	op.Complete(op.Count(), nil)
	return true
}

// SendPending reports whether a held send is waiting.
func (s *Socket) SendPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingSend != nil
}

// Written returns a copy of everything sent so far.
func (s *Socket) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.written.Bytes())
}

// SendSizes returns the byte count of every completed send.
func (s *Socket) SendSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.sizes...)
}

// Sends returns the number of send submissions.
func (s *Socket) Sends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

func (s *Socket) SetNoDelay(noDelay bool) error {
	s.mu.Lock()
	s.noDelay = noDelay
	s.mu.Unlock()
	return nil
}

// NoDelay returns the last SetNoDelay value.
func (s *Socket) NoDelay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noDelay
}

// ConnectAsync stays pending until ResolveConnect or Close.
func (s *Socket) ConnectAsync(op *api.Operation) (bool, error) {
	if err := op.Begin(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		op.Cancel()
		return false, s.aborted("connect")
	}
	s.pendingConnect = op
	return true, nil
}

// ResolveConnect completes a pending connect with err, reporting false
// when none is pending.
func (s *Socket) ResolveConnect(err error) bool {
	s.mu.Lock()
	op := s.pendingConnect
	s.pendingConnect = nil
	s.mu.Unlock()
	if op == nil {
		return false
	}
	if err == nil {
		op.ConnectSocket = s
	}
	op.Complete(0, err)
	return true
}

// ConnectPending reports whether a connect is outstanding.
func (s *Socket) ConnectPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingConnect != nil
}

func (s *Socket) Shutdown(how api.ShutdownHow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return net.ErrClosed
	}
	s.shutdowns = append(s.shutdowns, how)
	return nil
}

// Close aborts every outstanding operation.
func (s *Socket) Close() error {
	s.mu.Lock()
	s.closes++
	if s.closed {
		s.mu.Unlock()
		return net.ErrClosed
	}
	s.closed = true
	ops := []*api.Operation{s.pendingRecv, s.pendingSend, s.pendingConnect}
	s.pendingRecv, s.pendingSend, s.pendingConnect = nil, nil, nil
	s.mu.Unlock()
	for _, op := range ops {
		if op != nil {
			op.Complete(0, net.ErrClosed)
		}
	}
	return nil
}

// Closed reports whether Close was called.
func (s *Socket) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// CloseCalls returns how many times Close was called.
func (s *Socket) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Shutdowns returns the recorded Shutdown calls.
func (s *Socket) Shutdowns() []api.ShutdownHow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.ShutdownHow(nil), s.shutdowns...)
}

func (s *Socket) LocalAddr() net.Addr  { return Addr("local") }
func (s *Socket) RemoteAddr() net.Addr { return Addr("remote") }

var _ api.ConnectSocket = (*Socket)(nil)
