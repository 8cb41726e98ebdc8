// File: cmd/slimsock/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/momentics/slimsock/cmd/slimsock/connect"
	"github.com/momentics/slimsock/cmd/slimsock/serve"
	"github.com/momentics/slimsock/cmd/slimsock/version"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := new(ffcli.Command)
	c.Name = filepath.Base(os.Args[0])
	c.ShortUsage = "slimsock <command>"

	c.Subcommands = append(c.Subcommands, serve.NewCommand())
	c.Subcommands = append(c.Subcommands, connect.NewCommand())
	c.Subcommands = append(c.Subcommands, version.NewCommand())

	c.FlagSet = flag.NewFlagSet("slimsock", flag.ContinueOnError)
	c.FlagSet.SetOutput(os.Stdout)
	c.Exec = func(ctx context.Context, args []string) error {
		fmt.Fprintf(os.Stdout, "%s\n", c.UsageFunc(c))
		if len(args) > 0 {
			return fmt.Errorf("unknown command %q", args[0])
		}
		return nil
	}

	switch err := c.Parse(os.Args[1:]); {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		return
	case strings.Contains(err.Error(), "flag provided but not defined"):
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "slimsock: error: %v\n", err)
		os.Exit(1)
	}

	if err := c.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "slimsock: error: %v\n", err)
		os.Exit(1)
	}
}
