// File: server/options.go
// Package server defines functional options for the Acceptor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"

	"github.com/momentics/slimsock/pool"
)

// AcceptorOption customizes acceptor initialization.
type AcceptorOption func(*Acceptor)

// WithHandler sets the accept notification handler.
func WithHandler(h Handler) AcceptorOption {
	return func(a *Acceptor) {
		a.handler = h
	}
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) AcceptorOption {
	return func(a *Acceptor) {
		a.logger = l
	}
}

// WithPool replaces the acceptor-resource pool.
func WithPool(p pool.OperationPool) AcceptorOption {
	return func(a *Acceptor) {
		a.pool = p
	}
}

// WithFactory replaces the accept operation factory.
func WithFactory(f pool.OperationFactory) AcceptorOption {
	return func(a *Acceptor) {
		a.factory = f
	}
}

// WithEnforcer forces an admission controller instead of deriving one
// from MaxSimultaneousConnections.
func WithEnforcer(e Enforcer) AcceptorOption {
	return func(a *Acceptor) {
		a.enforcer = e
	}
}
