// File: cmd/slimsock/connect/load.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package connect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/channel"
	"github.com/momentics/slimsock/client"
	"github.com/momentics/slimsock/control"
	"github.com/momentics/slimsock/pool"
)

// Load describes the traffic each run generates.
type Load struct {
	Connections int           // parallel connections
	Messages    int           // messages sent per connection
	Size        int           // bytes per message
	Timeout     time.Duration // per connection, 0 for none
}

// Result summarizes a run.
type Result struct {
	Connections int
	BytesSent   uint64
	BytesEchoed uint64
	Elapsed     time.Duration
}

// ErrShortEcho is returned when a peer closes before echoing everything.
var ErrShortEcho = errors.New("connection closed before the echo completed")

// Run opens load.Connections connections to cfg.Client, sends the messages
// on each and waits for them to come back.
func Run(ctx context.Context, tr api.Transport, cfg *control.Config, load Load, logger *slog.Logger) (Result, error) {
	if load.Connections <= 0 || load.Messages <= 0 || load.Size <= 0 {
		return Result{}, fmt.Errorf("load %+v: %w", load, api.ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.Default()
	}
	recvSlab := pool.NewSlabPool(cfg.Channel.ReceiveBufferSize, cfg.Channel.SlabCapacity)
	sendSlab := pool.NewSlabPool(cfg.Channel.SendBufferSize, cfg.Channel.SlabCapacity)

	var res Result
	var sent, echoed atomic.Uint64
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < load.Connections; i++ {
		g.Go(func() error {
			s := &session{
				cfg:      cfg,
				load:     load,
				recvSlab: recvSlab,
				sendSlab: sendSlab,
				logger:   logger,
				want:     uint64(load.Messages * load.Size),
				full:     make(chan struct{}),
			}
			err := s.run(ctx, tr)
			sent.Add(s.sent)
			echoed.Add(s.got.Load())
			return err
		})
	}
	err := g.Wait()
	res.Connections = load.Connections
	res.BytesSent = sent.Load()
	res.BytesEchoed = echoed.Load()
	res.Elapsed = time.Since(start)
	return res, err
}

type session struct {
	cfg      *control.Config
	load     Load
	recvSlab *pool.SlabPool
	sendSlab *pool.SlabPool
	logger   *slog.Logger

	want     uint64
	got      atomic.Uint64
	sent     uint64
	full     chan struct{}
	fullOnce sync.Once
	mismatch atomic.Bool
}

func (s *session) run(ctx context.Context, tr api.Transport) error {
	if s.load.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.load.Timeout)
		defer cancel()
	}

	target := s.cfg.Client
	fc := client.NewFutureConnector(tr, &target, client.WithLogger(s.logger))
	f, err := fc.ConnectAsync()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	sock, err := f.Await(ctx)
	if err != nil {
		fc.StopConnecting()
		return fmt.Errorf("connect %s: %w", target.Endpoint(), err)
	}

	ch, err := channel.NewFromPool(sock, s.recvSlab, s.sendSlab,
		channel.WithHandler(s), channel.WithLogger(s.logger))
	if err != nil {
		_ = sock.Close()
		return err
	}
	defer func() {
		_ = ch.Close()
		<-ch.Done()
		ch.Release()
	}()
	if err := ch.Start(); err != nil {
		return err
	}

	msg := payload(s.load.Size)
	for i := 0; i < s.load.Messages; i++ {
		if err := ch.Send(msg); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		s.sent += uint64(len(msg))
	}

	select {
	case <-s.full:
	case <-ch.Done():
		if s.got.Load() < s.want {
			return fmt.Errorf("%s: %w", ch.RemoteAddr(), ErrShortEcho)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.mismatch.Load() {
		return fmt.Errorf("%s: echoed bytes differ from the payload", ch.RemoteAddr())
	}
	return nil
}

// payload is a repeating alphabet so an echo can be checked by position.
func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(i%26)
	}
	return b
}

func (s *session) OnReceived(_ *channel.Channel, r *channel.Received) {
	data := r.Bytes()
	pos := s.got.Load() % uint64(s.load.Size)
	for _, c := range data {
		if c != 'a'+byte(pos%26) {
			s.mismatch.Store(true)
			break
		}
		pos++
		if pos == uint64(s.load.Size) {
			pos = 0
		}
	}
	if s.got.Add(uint64(len(data))) >= s.want {
		s.fullOnce.Do(func() { close(s.full) })
	}
	r.Proceed()
}

func (s *session) OnSideClosed(ch *channel.Channel, ev api.CloseEvent) {
	s.logger.Debug("connect: side closed", "channel", ch, "event", ev.String())
}

func (s *session) OnClosed(*channel.Channel) {}
