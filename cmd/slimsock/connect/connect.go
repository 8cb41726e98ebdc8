// File: cmd/slimsock/connect/connect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package connect implements "slimsock connect", a load generator for the
// echo server.
package connect

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/momentics/slimsock/control"
	"github.com/momentics/slimsock/logging"
	"github.com/momentics/slimsock/transport/tcp"
)

type Command struct {
	flags struct {
		config  string
		addr    string
		verbose bool
	}
	load Load

	ffcli.Command
}

func NewCommand() *ffcli.Command {
	c := new(Command)

	c.Name = "connect"
	c.ShortUsage = "slimsock connect [flags]"
	c.ShortHelp = "send traffic to an echo server and verify it comes back"

	c.FlagSet = flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	c.FlagSet.StringVar(&c.flags.config, "config", "", "configuration file path")
	c.FlagSet.StringVar(&c.flags.addr, "addr", "", "remote IP:PORT to connect to")
	c.FlagSet.IntVar(&c.load.Connections, "conns", 1, "parallel connections")
	c.FlagSet.IntVar(&c.load.Messages, "messages", 1000, "messages per connection")
	c.FlagSet.IntVar(&c.load.Size, "size", 64, "message size in bytes")
	c.FlagSet.DurationVar(&c.load.Timeout, "timeout", time.Minute, "per connection timeout")
	c.FlagSet.BoolVar(&c.flags.verbose, "v", false, "enable verbose logging")

	c.Options = []ff.Option{ff.WithEnvVarPrefix("SLIMSOCK_CONNECT")}
	c.Exec = c.entrypoint
	return &c.Command
}

func (c *Command) entrypoint(ctx context.Context, args []string) error {
	cfg := control.DefaultConfig()
	if c.flags.config != "" {
		var err error
		if cfg, err = control.Load(c.flags.config); err != nil {
			return err
		}
	}
	if c.flags.addr != "" {
		ap, err := netip.ParseAddrPort(c.flags.addr)
		if err != nil {
			return fmt.Errorf("parse -addr: %w", err)
		}
		cfg.Client.Address, cfg.Client.Port = ap.Addr(), int(ap.Port())
	}
	if c.flags.verbose {
		cfg.Logging.Verbose = true
	}
	if err := cfg.Client.Validate(); err != nil {
		return err
	}
	logging.Verbose = cfg.Logging.Verbose
	logging.Init()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := Run(ctx, tcp.New(), cfg, c.load, slog.Default())
	rate := 0.0
	if secs := res.Elapsed.Seconds(); secs > 0 {
		rate = float64(res.BytesEchoed) / secs / (1 << 20)
	}
	slog.Info("done", "conns", res.Connections, "sent", res.BytesSent, "echoed", res.BytesEchoed,
		"elapsed", res.Elapsed.Round(time.Millisecond), "mib_per_sec", fmt.Sprintf("%.2f", rate))
	return err
}
