// File: client/connector.go
// Package client implements the cancellable asynchronous connector and
// its future-returning variant.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/momentics/slimsock/api"
)

// Connector performs one connect attempt at a time and reports exactly one
// outcome per attempt.
type Connector struct {
	cfg     *Config
	tr      api.Transport
	handler Handler
	logger  *slog.Logger
	noDelay bool

	inflight atomic.Pointer[attempt]
}

type attempt struct {
	sock api.ConnectSocket
	// done overrides the handler for this attempt.
	done func(sock api.Socket, err error)
}

// NewConnector builds a connector over tr. A nil cfg selects DefaultConfig.
func NewConnector(tr api.Transport, cfg *Config, opts ...Option) *Connector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Connector{
		cfg:     cfg,
		tr:      tr,
		logger:  slog.Default(),
		noDelay: true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Config returns the configuration. Changes take effect on the next Connect.
func (c *Connector) Config() *Config { return c.cfg }

// SetHandler replaces the handler. Call before Connect.
func (c *Connector) SetHandler(h Handler) { c.handler = h }

// Connecting reports whether an attempt is in flight.
func (c *Connector) Connecting() bool { return c.inflight.Load() != nil }

// Connect starts an attempt. It fails with api.ErrAlreadyConnecting while
// another attempt is in flight.
func (c *Connector) Connect() error {
	return c.connect(nil)
}

func (c *Connector) connect(done func(api.Socket, error)) error {
	if c.inflight.Load() != nil {
		return api.ErrAlreadyConnecting
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	sock, err := c.tr.NewSocket(c.cfg.Address)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	at := &attempt{sock: sock, done: done}
	if !c.inflight.CompareAndSwap(nil, at) {
		_ = sock.Close()
		return api.ErrAlreadyConnecting
	}
	if err := sock.SetNoDelay(c.noDelay); err != nil {
		c.logger.Debug("connector: set no-delay", "err", err)
	}

	op := api.NewOperation(nil)
	op.RemoteEndPoint = c.cfg.Endpoint()
	op.SetCompleted(func(op *api.Operation) { c.complete(at, op) })

	pending, err := sock.ConnectAsync(op)
	if err != nil {
		_ = sock.Close()
		if !c.inflight.CompareAndSwap(at, nil) {
			// StopConnecting closed the socket before the submit; the
			// attempt ends as aborted like any other stopped attempt.
			c.deliver(at, nil, &api.SocketError{Op: "connect", Code: api.OperationAborted, Err: api.ErrConnectCanceled})
			return nil
		}
		return fmt.Errorf("connect %s: %w", op.RemoteEndPoint, err)
	}
	if !pending {
		c.complete(at, op)
	}
	return nil
}

// StopConnecting aborts the attempt in flight by closing its socket. The
// abort is reported through OnConnectFailed. It reports whether an attempt
// was in flight.
func (c *Connector) StopConnecting() bool {
	at := c.inflight.Swap(nil)
	if at == nil {
		return false
	}
	if err := at.sock.Close(); err != nil {
		c.logger.Debug("connector: close cancelled socket", "err", err)
	}
	return true
}

func (c *Connector) complete(at *attempt, op *api.Operation) {
	stopped := !c.inflight.CompareAndSwap(at, nil)
	err := op.Failure("connect")

	if err == nil && stopped {
		// Connected after StopConnecting; the attempt still ends as aborted.
		_ = at.sock.Close()
		err = &api.SocketError{Op: "connect", Code: api.OperationAborted, Err: api.ErrConnectCanceled}
	}
	if err != nil {
		_ = at.sock.Close()
		c.logger.Debug("connect failed", "endpoint", op.RemoteEndPoint, "err", err)
		c.deliver(at, nil, err)
		return
	}

	sock := op.ConnectSocket
	if sock == nil {
		sock = at.sock
	}
	op.ResetSockets()
	c.deliver(at, sock, nil)
}

func (c *Connector) deliver(at *attempt, sock api.Socket, err error) {
	if at.done != nil {
		at.done(sock, err)
		return
	}
	switch {
	case c.handler == nil:
		if sock != nil {
			_ = sock.Close()
		}
	case err != nil:
		c.handler.OnConnectFailed(c, err)
	default:
		c.handler.OnConnected(c, sock)
	}
}
