// File: channel/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/google/uuid"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/pool"
)

// Receive dispatch states.
const (
	dispatchIdle int32 = iota
	dispatchRunning
	dispatchProceed
)

// Channel is a duplex data channel over one connected socket.
type Channel struct {
	id       uuid.UUID
	sock     api.Socket
	recvOp   *api.Operation
	received *Received
	sendOp   *api.Operation
	writer   *Writer
	handler  Handler
	logger   *slog.Logger

	recvSlab *pool.SlabPool
	sendSlab *pool.SlabPool

	started   atomic.Bool
	closed    atomic.Bool
	sendFreed atomic.Bool
	recvFreed atomic.Bool
	recvState atomic.Int32
	sendState atomic.Int32
	dispatch  atomic.Int32
	proceeded atomic.Bool // Proceed already used for the current delivery
	released  atomic.Bool
	done      chan struct{}

	mu      sync.Mutex
	queue   *queue.Queue
	sending bool

	// Owned by the active send cycle.
	current    []byte
	currentOff int
	batch      [][]byte

	bytesReceived atomic.Uint64
	bytesSent     atomic.Uint64
	receives      atomic.Uint64
	sendCycles    atomic.Uint64
	messages      atomic.Uint64
	dropped       atomic.Uint64
}

// Stats reports channel counters.
type Stats struct {
	BytesReceived uint64
	BytesSent     uint64
	Receives      uint64 // completed receives with data
	SendCycles    uint64 // send operations issued
	Messages      uint64 // messages accepted by Send
	Dropped       uint64 // queued messages discarded when the send side closed
}

// Option customizes a Channel.
type Option func(*Channel)

// WithHandler sets the notification handler.
func WithHandler(h Handler) Option { return func(c *Channel) { c.handler = h } }

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option { return func(c *Channel) { c.logger = l } }

// New wires a channel over sock. recv must be bound to recvOp and w to
// sendOp. Nothing is issued until Start.
func New(sock api.Socket, recvOp *api.Operation, recv *Received, sendOp *api.Operation, w *Writer, opts ...Option) (*Channel, error) {
	switch {
	case sock == nil, recvOp == nil, recv == nil, sendOp == nil, w == nil:
		return nil, fmt.Errorf("channel: nil component: %w", api.ErrInvalidArgument)
	case recv.op != recvOp:
		return nil, fmt.Errorf("channel: receive notification bound to another operation: %w", api.ErrInvalidArgument)
	case recvOp.Count() == 0 || w.Cap() == 0:
		return nil, fmt.Errorf("channel: empty buffer: %w", api.ErrInvalidArgument)
	case recvOp == sendOp:
		return nil, fmt.Errorf("channel: receive and send share one operation: %w", api.ErrInvalidArgument)
	}

	c := &Channel{
		id:       uuid.New(),
		sock:     sock,
		recvOp:   recvOp,
		received: recv,
		sendOp:   sendOp,
		writer:   w,
		handler:  BuiltinHandler{},
		logger:   slog.Default(),
		done:     make(chan struct{}),
		queue:    queue.New(),
	}
	for _, o := range opts {
		o(c)
	}
	recv.ch = c
	c.proceeded.Store(true)
	recvOp.SetCompleted(func(*api.Operation) { c.receiveLoop(true) })
	sendOp.SetCompleted(func(*api.Operation) { c.sendLoop(true) })
	return c, nil
}

// NewFromPool builds a channel whose buffers come from recvSlab and
// sendSlab. Release returns them once the channel has closed.
func NewFromPool(sock api.Socket, recvSlab, sendSlab *pool.SlabPool, opts ...Option) (*Channel, error) {
	recvOp := pool.NewSlabFactory(recvSlab)()
	sendOp := pool.NewSlabFactory(sendSlab)()
	c, err := New(sock, recvOp, NewReceived(recvOp), sendOp, NewWriter(sendOp), opts...)
	if err != nil {
		return nil, err
	}
	c.recvSlab, c.sendSlab = recvSlab, sendSlab
	return c, nil
}

// ID returns the channel identity used in logs.
func (c *Channel) ID() uuid.UUID { return c.id }

// SetHandler replaces the handler. Call before Start.
func (c *Channel) SetHandler(h Handler) { c.handler = h }

func (c *Channel) LocalAddr() net.Addr  { return c.sock.LocalAddr() }
func (c *Channel) RemoteAddr() net.Addr { return c.sock.RemoteAddr() }

// Done is closed after OnClosed has returned.
func (c *Channel) Done() <-chan struct{} { return c.done }

// State returns the lifecycle state of one direction.
func (c *Channel) State(side api.DuplexSide) api.SideState {
	if side == api.SideSend {
		return api.SideState(c.sendState.Load())
	}
	return api.SideState(c.recvState.Load())
}

// Stats returns a snapshot of the counters.
func (c *Channel) Stats() Stats {
	return Stats{
		BytesReceived: c.bytesReceived.Load(),
		BytesSent:     c.bytesSent.Load(),
		Receives:      c.receives.Load(),
		SendCycles:    c.sendCycles.Load(),
		Messages:      c.messages.Load(),
		Dropped:       c.dropped.Load(),
	}
}

func (c *Channel) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", c.id.String()),
		slog.Bool("closed", c.closed.Load()),
	}
	if addr := c.sock.RemoteAddr(); addr != nil {
		attrs = append(attrs, slog.String("remote", addr.String()))
	}
	return slog.GroupValue(attrs...)
}

// Start issues the first receive.
func (c *Channel) Start() error {
	if c.closed.Load() {
		return api.ErrChannelClosed
	}
	if !c.started.CompareAndSwap(false, true) {
		return api.ErrAlreadyStarted
	}
	c.receiveLoop(false)
	return nil
}

// Send queues msg for transmission. The channel keeps a reference to msg
// until it has been copied into the send buffer, so the caller must not
// modify it afterwards.
func (c *Channel) Send(msg []byte) error {
	if len(msg) == 0 {
		return fmt.Errorf("channel: empty message: %w", api.ErrInvalidArgument)
	}
	if c.closed.Load() {
		return api.ErrChannelClosed
	}
	if !c.started.Load() {
		return api.ErrNotStarted
	}

	c.mu.Lock()
	if c.sendFreed.Load() {
		c.mu.Unlock()
		return api.ErrChannelClosed
	}
	c.queue.Add(msg)
	c.messages.Add(1)
	if c.sending {
		c.mu.Unlock()
		return nil
	}
	c.sending = true
	c.mu.Unlock()

	c.sendLoop(false)
	return nil
}

// Close shuts down and closes the socket. Outstanding operations complete
// as aborted and drive the regular teardown.
func (c *Channel) Close() error {
	c.closeSocket()
	return nil
}

func (c *Channel) closeSocket() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.recvState.CompareAndSwap(int32(api.SideActive), int32(api.SideClosing))
	c.sendState.CompareAndSwap(int32(api.SideActive), int32(api.SideClosing))
	// Errors here, including an already closed socket, change nothing.
	_ = c.sock.Shutdown(api.ShutdownBoth)
	_ = c.sock.Close()
}

// receiveLoop runs receives until one is pending, the consumer withholds
// Proceed, or the direction ends. completed means recvOp holds a result.
func (c *Channel) receiveLoop(completed bool) {
	for {
		if !completed {
			pending, err := c.sock.ReceiveAsync(c.recvOp)
			if errors.Is(err, api.ErrOperationInFlight) {
				c.logger.Debug("channel: receive already outstanding", "channel", c)
				return
			}
			if err != nil {
				c.closeSide(api.SideReceive, api.CodeOf(err), err)
				return
			}
			if pending {
				return
			}
		}
		if !c.processReceive() {
			return
		}
		completed = false
	}
}

// processReceive handles a completed receive and reports whether the next
// receive should be issued right away.
func (c *Channel) processReceive() bool {
	if c.recvFreed.Load() {
		return false
	}
	op := c.recvOp
	if op.SocketError != api.SocketSuccess || op.Err != nil {
		c.closeSide(api.SideReceive, op.SocketError, op.Err)
		return false
	}
	if op.BytesTransferred == 0 {
		c.closeSide(api.SideReceive, api.SocketSuccess, nil)
		return false
	}
	c.receives.Add(1)
	c.bytesReceived.Add(uint64(op.BytesTransferred))

	c.proceeded.Store(false)
	c.dispatch.Store(dispatchRunning)
	if err := c.deliver(); err != nil {
		c.dispatch.Store(dispatchIdle)
		c.logger.Debug("channel: receive handler failed", "channel", c, "err", err)
		c.closeSide(api.SideReceive, api.SocketSuccess, err)
		return false
	}
	if c.dispatch.CompareAndSwap(dispatchRunning, dispatchIdle) {
		// Proceed was withheld; it issues the receive itself later.
		return false
	}
	c.dispatch.Store(dispatchIdle)
	return true
}

func (c *Channel) deliver() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel: receive handler panic: %v", r)
		}
	}()
	c.handler.OnReceived(c, c.received)
	return nil
}

// proceed takes effect once per delivery. Later calls only report whether
// the channel is still open.
func (c *Channel) proceed() bool {
	if !c.proceeded.CompareAndSwap(false, true) {
		return !c.closed.Load()
	}
	if !c.dispatch.CompareAndSwap(dispatchRunning, dispatchProceed) {
		c.receiveLoop(false)
	}
	return !c.closed.Load()
}

// sendLoop runs send cycles until one is pending or nothing is left.
// completed means sendOp holds a result.
func (c *Channel) sendLoop(completed bool) {
	op := c.sendOp
	for {
		if completed {
			if !c.sendCompleted(op) {
				return
			}
		} else if !c.nextBatch(op) {
			return
		}
		c.sendCycles.Add(1)
		pending, err := c.sock.SendAsync(op)
		if err != nil {
			c.failSend(api.NewSocketError("send", err))
			return
		}
		if pending {
			return
		}
		completed = true
	}
}

// sendCompleted accounts a finished send and prepares the next region.
func (c *Channel) sendCompleted(op *api.Operation) bool {
	if err := op.Failure("send"); err != nil {
		c.failSend(err)
		return false
	}
	sent := op.BytesTransferred
	c.bytesSent.Add(uint64(sent))
	if rest := op.Count() - sent; rest > 0 {
		if sent == 0 {
			c.failSend(&api.SocketError{Op: "send", Code: api.Shutdown})
			return false
		}
		op.SetBuffer(op.Offset()+sent, rest)
		return true
	}
	return c.nextBatch(op)
}

// nextBatch packs the partial message and queued messages into the send
// buffer. It clears the sending flag and returns false when there is
// nothing to send.
func (c *Channel) nextBatch(op *api.Operation) bool {
	w := c.writer
	w.Reset()
	if c.current != nil {
		rest := c.current[c.currentOff:]
		n, _ := w.Write(rest)
		if n < len(rest) {
			c.currentOff += n
			op.SetBuffer(w.base, w.Len())
			return true
		}
		c.current, c.currentOff = nil, 0
	}

	c.mu.Lock()
	batch := c.batch[:0]
	for avail := w.Available(); avail > 0 && c.queue.Length() > 0; {
		msg := c.queue.Remove().([]byte)
		batch = append(batch, msg)
		avail -= len(msg)
	}
	if w.Len() == 0 && len(batch) == 0 {
		c.sending = false
		// The receive direction may have ended while this cycle ran.
		freeSend := c.recvFreed.Load() && c.sendFreed.CompareAndSwap(false, true)
		if freeSend {
			c.sendState.Store(int32(api.SideClosed))
		}
		c.mu.Unlock()
		if freeSend {
			c.sendDrained()
		}
		return false
	}
	c.mu.Unlock()

	for i, msg := range batch {
		if n, _ := w.Write(msg); n < len(msg) {
			c.current, c.currentOff = msg, n
		}
		batch[i] = nil
	}
	c.batch = batch[:0]
	op.SetBuffer(w.base, w.Len())
	return true
}

func (c *Channel) failSend(err *api.SocketError) {
	c.mu.Lock()
	c.sending = false
	c.mu.Unlock()
	c.logger.Debug("channel: send failed", "channel", c, "err", err)
	c.closeSide(api.SideSend, err.Code, err)
}

// closeSide latches the failing direction, closes the socket once and
// raises the notifications. An idle send direction is released together
// with the receive direction and reported with SocketSuccess.
func (c *Channel) closeSide(side api.DuplexSide, code api.SocketErrorCode, err error) {
	var freeSend, freeRecv bool
	if side == api.SideSend {
		freeSend = c.sendFreed.CompareAndSwap(false, true)
	} else {
		freeRecv = c.recvFreed.CompareAndSwap(false, true)
		if freeRecv {
			c.mu.Lock()
			if !c.sending {
				freeSend = c.sendFreed.CompareAndSwap(false, true)
			}
			c.mu.Unlock()
		}
	}
	if !freeSend && !freeRecv {
		return
	}

	if (side == api.SideSend && freeSend) || (side == api.SideReceive && freeRecv) {
		c.handler.OnSideClosed(c, api.CloseEvent{Side: side, Code: code, Err: err})
	}
	c.closeSocket()

	if freeSend {
		c.sendState.Store(int32(api.SideClosed))
		c.dropQueued()
		if side == api.SideReceive {
			c.sendDrained()
		}
	}
	if freeRecv {
		c.recvState.Store(int32(api.SideClosed))
		c.logger.Debug("channel closed", "channel", c, "side", side, "code", code)
		c.handler.OnClosed(c)
		close(c.done)
	}
}

// sendDrained reports an idle send direction released because the receive
// direction ended.
func (c *Channel) sendDrained() {
	c.handler.OnSideClosed(c, api.CloseEvent{Side: api.SideSend, Code: api.SocketSuccess})
}

func (c *Channel) dropQueued() {
	c.mu.Lock()
	n := c.queue.Length()
	if n > 0 {
		c.queue = queue.New()
	}
	c.mu.Unlock()
	c.dropped.Add(uint64(n))
}

// Release hands pooled buffers back once both directions have closed. It
// reports true only for the call that released them; it reports false while
// either direction is still active or operations are in flight.
func (c *Channel) Release() bool {
	if !c.recvFreed.Load() || !c.sendFreed.Load() || c.recvOp.InFlight() || c.sendOp.InFlight() {
		return false
	}
	if !c.released.CompareAndSwap(false, true) {
		return false
	}
	if c.recvSlab != nil {
		pool.Recycle(c.recvSlab, c.recvOp)
		c.recvSlab = nil
	}
	if c.sendSlab != nil {
		pool.Recycle(c.sendSlab, c.sendOp)
		c.sendSlab = nil
	}
	return true
}
