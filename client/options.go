// File: client/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import "log/slog"

// Option customizes a Connector.
type Option func(*Connector)

// WithHandler sets the outcome handler.
func WithHandler(h Handler) Option {
	return func(c *Connector) { c.handler = h }
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connector) { c.logger = l }
}

// WithNoDelay controls Nagle's algorithm on new sockets. Default true.
func WithNoDelay(on bool) Option {
	return func(c *Connector) { c.noDelay = on }
}
