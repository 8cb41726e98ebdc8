// File: server/acceptor.go
// Package server implements the connection acceptor: a self-sustaining
// accept loop gated by an admission controller and fed from a pool of
// reusable accept operations.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/pool"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Acceptor accepts connections and hands them to a Handler while keeping
// the number of open connections under the configured limit.
type Acceptor struct {
	cfg      *Config
	tr       api.Transport
	pool     pool.OperationPool
	factory  pool.OperationFactory
	handler  Handler
	logger   *slog.Logger
	enforcer Enforcer

	mu      sync.Mutex
	running bool
	cur     atomic.Pointer[acceptRun]

	accepted atomic.Uint64
	failed   atomic.Uint64
	recycled atomic.Uint64
	replaced atomic.Uint64
}

// acceptRun is the state of one Start/Stop cycle.
type acceptRun struct {
	ctx      context.Context
	cancel   context.CancelFunc
	listener api.Listener
	enforcer Enforcer
	rearm    chan struct{}
	done     chan struct{}
}

// NewAcceptor builds an acceptor over tr. A nil pool or factory selects a
// QueueOperationPool and an accept factory; a nil cfg selects DefaultConfig.
func NewAcceptor(tr api.Transport, p pool.OperationPool, factory pool.OperationFactory, cfg *Config, opts ...AcceptorOption) *Acceptor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	a := &Acceptor{
		cfg:     cfg,
		tr:      tr,
		pool:    p,
		factory: factory,
		handler: HandlerFuncs{},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.pool == nil {
		a.pool = pool.NewQueueOperationPool(cfg.PoolCapacity)
	}
	if a.factory == nil {
		a.factory = pool.NewAcceptFactory()
	}
	return a
}

// Config returns the configuration. Changes take effect on the next Start.
func (a *Acceptor) Config() *Config { return a.cfg }

// SetHandler replaces the handler. Call before Start.
func (a *Acceptor) SetHandler(h Handler) { a.handler = h }

// Start binds, listens with the configured backlog and launches the accept loop.
func (a *Acceptor) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return api.ErrAlreadyStarted
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	enf := a.enforcer
	if enf == nil {
		enf = NewEnforcer(a.cfg.MaxSimultaneousConnections)
	}
	ln, err := a.tr.Listen(a.cfg.Endpoint(), a.cfg.MaxPendingConnections)
	if err != nil {
		return fmt.Errorf("acceptor start: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &acceptRun{
		ctx:      ctx,
		cancel:   cancel,
		listener: ln,
		enforcer: enf,
		rearm:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	a.cur.Store(r)
	a.running = true
	a.logger.Debug("acceptor started", "addr", ln.Addr(), "backlog", a.cfg.MaxPendingConnections,
		"max_connections", a.cfg.MaxSimultaneousConnections)
	go a.loop(r)
	return nil
}

// Stop halts the loop and closes the listener. Accepted sockets stay open.
func (a *Acceptor) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return api.ErrNotStarted
	}
	a.running = false
	r := a.cur.Load()
	a.mu.Unlock()

	r.cancel()
	err := r.listener.Close()
	<-r.done
	a.logger.Debug("acceptor stopped", "addr", r.listener.Addr())
	if err != nil && api.CodeOf(err) != api.OperationAborted {
		return err
	}
	return nil
}

// ReleaseOpenConnectionSlot returns one admission slot. Call it once for
// every accepted socket when that connection ends.
func (a *Acceptor) ReleaseOpenConnectionSlot() {
	if r := a.cur.Load(); r != nil {
		r.enforcer.ReleaseOne()
	}
}

// Addr returns the listening address, nil before Start.
func (a *Acceptor) Addr() net.Addr {
	if r := a.cur.Load(); r != nil {
		return r.listener.Addr()
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (a *Acceptor) Stats() Stats {
	s := Stats{
		Accepted:  a.accepted.Load(),
		Failed:    a.failed.Load(),
		Recycled:  a.recycled.Load(),
		Replaced:  a.replaced.Load(),
		Available: -1,
	}
	if r := a.cur.Load(); r != nil {
		s.Available = r.enforcer.Available()
	}
	return s
}

func (a *Acceptor) LogValue() slog.Value {
	running := false
	if r := a.cur.Load(); r != nil {
		running = r.ctx.Err() == nil
	}
	attrs := []slog.Attr{slog.Bool("running", running)}
	if addr := a.Addr(); addr != nil {
		attrs = append(attrs, slog.String("addr", addr.String()))
	}
	return slog.GroupValue(attrs...)
}

func (a *Acceptor) loop(r *acceptRun) {
	defer close(r.done)
	var backoff time.Duration
	// ready holds an accept that completed inline. It is processed once the
	// next accept has been issued, or before waiting for a free slot.
	var ready *api.Operation
	defer func() {
		if ready != nil {
			a.processAccept(r, ready)
		}
	}()
	for r.ctx.Err() == nil {
		op, ok := a.pool.TryTake()
		if !ok {
			op = a.factory()
		}
		if ready == nil || !r.enforcer.TryTakeOne() {
			if ready != nil {
				a.processAccept(r, ready)
				ready = nil
			}
			if err := r.enforcer.TakeOne(r.ctx); err != nil {
				a.pool.Put(op)
				return
			}
		}

		op.SetCompleted(func(op *api.Operation) {
			// Wake the loop for the next accept before handling this one.
			select {
			case r.rearm <- struct{}{}:
			default:
			}
			a.processAccept(r, op)
		})
		pending, err := r.listener.AcceptAsync(op)
		if ready != nil {
			a.processAccept(r, ready)
			ready = nil
		}
		if err != nil {
			op.Finish(0, err)
			a.processAccept(r, op)
			backoff = nextBackoff(backoff)
			select {
			case <-time.After(backoff):
			case <-r.ctx.Done():
			}
			continue
		}
		backoff = 0
		if !pending {
			ready = op
			continue
		}
		select {
		case <-r.rearm:
		case <-r.ctx.Done():
			return
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	if d *= 2; d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}
	return d
}

func (a *Acceptor) processAccept(r *acceptRun, op *api.Operation) {
	if err := op.Failure("accept"); err != nil {
		if r.ctx.Err() != nil && err.Code == api.OperationAborted {
			a.logger.Debug("accept aborted by stop")
		} else {
			a.failed.Add(1)
			a.logger.Debug("accept failed", "err", err)
			a.handler.OnAcceptFailed(a, err)
		}
		a.handleBadAccept(r, op)
		return
	}

	sock := op.AcceptSocket
	if sock == nil {
		a.handleBadAccept(r, op)
		return
	}
	op.AcceptSocket = nil
	a.pool.Put(op)
	a.accepted.Add(1)
	a.handler.OnAccepted(a, sock)
}

// handleBadAccept recycles op and gives back the slot taken for it. An
// operation that failed with a reset is replaced rather than reused.
func (a *Acceptor) handleBadAccept(r *acceptRun, op *api.Operation) {
	if s := op.AcceptSocket; s != nil {
		_ = s.Close()
		op.AcceptSocket = nil
	}
	if op.SocketError == api.ConnectionReset {
		a.replaced.Add(1)
		a.pool.Put(a.factory())
	} else {
		a.recycled.Add(1)
		a.pool.Put(op)
	}
	r.enforcer.ReleaseOne()
}
