// File: logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package logging installs the process-wide slog handler used by the
// slimsock command.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Verbose switches the default level to debug. Set it before Init.
var Verbose bool

// Init installs a text handler on stdout as the slog default.
func Init() {
	slog.SetDefault(New(os.Stdout, Verbose))
}

// New builds a text logger writing to w. Source paths are trimmed to the
// module root.
func New(w io.Writer, verbose bool) *slog.Logger {
	_, path, _, _ := runtime.Caller(0)
	prefix := strings.TrimSuffix(path, "/logging/logging.go")

	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.SourceKey:
				src, ok := attr.Value.Any().(*slog.Source)
				if !ok {
					return attr
				}
				src.File = strings.TrimPrefix(src.File, prefix+"/")
				src.File = strings.TrimPrefix(src.File, filepath.Dir(prefix)+"/")
				return slog.Attr{Key: "src", Value: attr.Value}
			case slog.MessageKey:
				if msg, _ := attr.Value.Any().(string); msg == "" {
					return slog.Attr{}
				}
			}
			return attr
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
