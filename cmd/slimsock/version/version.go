// File: cmd/slimsock/version/version.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package version implements "slimsock version".
package version

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/peterbourgon/ff/v3/ffcli"
)

// Set with -ldflags at build time.
var (
	Release    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

type Command struct {
	flags struct {
		json bool
	}

	ffcli.Command
}

func NewCommand() *ffcli.Command {
	c := new(Command)

	c.Name = "version"
	c.ShortUsage = "slimsock version [flags]"
	c.ShortHelp = "print slimsock version"

	c.FlagSet = flag.NewFlagSet("", flag.ContinueOnError)
	c.FlagSet.BoolVar(&c.flags.json, "json", false, "output in JSON format")

	c.Exec = c.entrypoint
	return &c.Command
}

func (c *Command) entrypoint(ctx context.Context, args []string) error {
	fmt.Printf("%s\n", Full(c.flags.json))
	return nil
}

// Full renders the build and host description.
func Full(isJSON bool) string {
	buildGoVersion := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		buildGoVersion = info.GoVersion
	}
	kernelName, kernelVersion, kernelArch := kernel()

	b := new(bytes.Buffer)
	if isJSON {
		enc := json.NewEncoder(b)
		enc.SetIndent("", "  ")
		enc.Encode(map[string]any{
			"release":        Release,
			"commitHash":     CommitHash,
			"buildTime":      BuildTime,
			"buildGoVersion": buildGoVersion,
			"os":             runtime.GOOS,
			"arch":           runtime.GOARCH,
			"kernelName":     kernelName,
			"kernelVersion":  kernelVersion,
			"kernelArch":     kernelArch,
		})
	} else {
		fmt.Fprintf(b, "%s\n", Release)
		fmt.Fprintf(b, "  commit %s built at %s with %s\n", CommitHash, BuildTime, buildGoVersion)
		fmt.Fprintf(b, "  running on %s/%s, kernel %s %s on %s", runtime.GOOS, runtime.GOARCH, kernelName, kernelVersion, kernelArch)
	}
	return b.String()
}
