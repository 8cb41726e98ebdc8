// File: cmd/slimsock/serve/serve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package serve implements the "slimsock serve" echo server command.
package serve

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
		config   string
		listen   string
		backlog  int
		maxConns int
		stats    time.Duration
		verbose  bool
	}

	ffcli.Command
}

func NewCommand() *ffcli.Command {
	c := new(Command)

	c.Name = "serve"
	c.ShortUsage = "slimsock serve [flags]"
	c.ShortHelp = "run a TCP echo server"

	c.FlagSet = flag.NewFlagSet(filepath.Base(os.Args[0]), flag.ContinueOnError)
	c.FlagSet.StringVar(&c.flags.config, "config", "", "configuration file path")
	c.FlagSet.StringVar(&c.flags.listen, "listen", "", "local IP:PORT to listen on")
	c.FlagSet.IntVar(&c.flags.backlog, "backlog", 0, "listen backlog (max pending connections)")
	c.FlagSet.IntVar(&c.flags.maxConns, "max-conns", 0, "max simultaneous connections, negative for unbounded")
	c.FlagSet.DurationVar(&c.flags.stats, "stats", 30*time.Second, "statistics log interval, 0 to disable")
	c.FlagSet.BoolVar(&c.flags.verbose, "v", false, "enable verbose logging")

	c.Options = []ff.Option{ff.WithEnvVarPrefix("SLIMSOCK_SERVE")}
	c.Exec = c.entrypoint
	return &c.Command
}

func (c *Command) config() (*control.Config, error) {
	cfg := control.DefaultConfig()
	if c.flags.config != "" {
		var err error
		if cfg, err = control.Load(c.flags.config); err != nil {
			return nil, err
		}
	}

	var err error
	c.FlagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			var ap netip.AddrPort
			if ap, err = netip.ParseAddrPort(c.flags.listen); err != nil {
				err = fmt.Errorf("parse -listen: %w", err)
				return
			}
			cfg.Server.ListenAddress, cfg.Server.ListenPort = ap.Addr(), int(ap.Port())
		case "backlog":
			cfg.Server.MaxPendingConnections = c.flags.backlog
		case "max-conns":
			cfg.Server.MaxSimultaneousConnections = c.flags.maxConns
		case "v":
			cfg.Logging.Verbose = c.flags.verbose
		}
	})
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Command) entrypoint(ctx context.Context, args []string) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	logging.Verbose = cfg.Logging.Verbose
	logging.Init()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	probes := control.NewProbes()
	control.RegisterRuntimeProbes(probes)

	echo := NewEcho(tcp.New(), cfg, probes, slog.Default())
	if err := echo.Start(); err != nil {
		return err
	}
	slog.Info("listening", "addr", echo.Addr(), "backlog", cfg.Server.MaxPendingConnections,
		"max_conns", cfg.Server.MaxSimultaneousConnections)

	var tick <-chan time.Time
	if c.flags.stats > 0 {
		t := time.NewTicker(c.flags.stats)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-tick:
			slog.Info("stats", "probes", probes)
		case <-ctx.Done():
			slog.Info("shutting down", "active", echo.Active())
			return echo.Stop()
		}
	}
}
