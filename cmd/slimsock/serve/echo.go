// File: cmd/slimsock/serve/echo.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package serve

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/channel"
	"github.com/momentics/slimsock/control"
	"github.com/momentics/slimsock/pool"
	"github.com/momentics/slimsock/server"
)

// Echo accepts connections and writes every received byte back.
type Echo struct {
	acceptor *server.Acceptor
	recvSlab *pool.SlabPool
	sendSlab *pool.SlabPool
	logger   *slog.Logger

	active   atomic.Int64
	closed   atomic.Uint64
	released atomic.Uint64
}

// NewEcho wires an echo server over tr. probes may be nil.
func NewEcho(tr api.Transport, cfg *control.Config, probes *control.Probes, logger *slog.Logger) *Echo {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Echo{
		recvSlab: pool.NewSlabPool(cfg.Channel.ReceiveBufferSize, cfg.Channel.SlabCapacity),
		sendSlab: pool.NewSlabPool(cfg.Channel.SendBufferSize, cfg.Channel.SlabCapacity),
		logger:   logger,
	}
	srv := cfg.Server
	e.acceptor = server.NewAcceptor(tr, pool.NewQueueOperationPool(srv.PoolCapacity), pool.NewAcceptFactory(), &srv,
		server.WithHandler(server.HandlerFuncs{
			Accepted:     e.onAccepted,
			AcceptFailed: e.onAcceptFailed,
		}),
		server.WithLogger(logger))

	if probes != nil {
		probes.Register("acceptor", func() any { return e.acceptor.Stats() })
		probes.Register("channels.active", func() any { return e.active.Load() })
		probes.Register("channels.closed", func() any { return e.closed.Load() })
		probes.Register("slab.receive", func() any { return e.recvSlab.Stats() })
		probes.Register("slab.send", func() any { return e.sendSlab.Stats() })
	}
	return e
}

// Start begins accepting.
func (e *Echo) Start() error {
	if err := e.acceptor.Start(); err != nil {
		return fmt.Errorf("start acceptor: %w", err)
	}
	return nil
}

// Stop stops accepting. Open channels keep running until their peers leave.
func (e *Echo) Stop() error { return e.acceptor.Stop() }

// Addr returns the bound address.
func (e *Echo) Addr() net.Addr { return e.acceptor.Addr() }

// Active reports the number of open channels.
func (e *Echo) Active() int64 { return e.active.Load() }

// Released reports channels whose buffers went back to the slabs.
func (e *Echo) Released() uint64 { return e.released.Load() }

func (e *Echo) onAccepted(a *server.Acceptor, sock api.Socket) {
	ch, err := channel.NewFromPool(sock, e.recvSlab, e.sendSlab,
		channel.WithHandler(echoHandler{e}), channel.WithLogger(e.logger))
	if err != nil {
		e.logger.Error("echo: build channel", "err", err)
		_ = sock.Close()
		a.ReleaseOpenConnectionSlot()
		return
	}
	e.active.Add(1)
	e.logger.Debug("echo: accepted", "channel", ch)
	if err := ch.Start(); err != nil {
		e.logger.Error("echo: start channel", "channel", ch, "err", err)
		_ = ch.Close()
	}
}

func (e *Echo) onAcceptFailed(_ *server.Acceptor, err error) {
	e.logger.Warn("echo: accept failed", "err", err)
}

func (e *Echo) release(ch *channel.Channel) {
	if ch.Release() {
		e.released.Add(1)
	}
}

type echoHandler struct{ e *Echo }

func (h echoHandler) OnReceived(ch *channel.Channel, r *channel.Received) {
	if err := ch.Send(bytes.Clone(r.Bytes())); err != nil {
		h.e.logger.Debug("echo: send", "channel", ch, "err", err)
	}
	// A closed channel finishes its teardown on the next receive.
	r.Proceed()
}

func (h echoHandler) OnSideClosed(ch *channel.Channel, ev api.CloseEvent) {
	h.e.logger.Debug("echo: side closed", "channel", ch, "event", ev.String())
	if ev.Side == api.SideSend {
		h.e.release(ch)
	}
}

func (h echoHandler) OnClosed(ch *channel.Channel) {
	h.e.active.Add(-1)
	h.e.closed.Add(1)
	h.e.acceptor.ReleaseOpenConnectionSlot()
	h.e.release(ch)
}
