// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"fmt"
	"net/netip"

	"github.com/momentics/slimsock/api"
)

// Config holds all acceptor configuration. It must be set before Start.
type Config struct {
	ListenAddress              netip.Addr `yaml:"listen_address"`
	ListenPort                 int        `yaml:"listen_port"`
	MaxPendingConnections      int        `yaml:"max_pending_connections"`      // listen backlog
	MaxSimultaneousConnections int        `yaml:"max_simultaneous_connections"` // negative = unbounded
	PoolCapacity               int        `yaml:"pool_capacity"`                // idle accept operations kept
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddress:              netip.IPv4Unspecified(),
		ListenPort:                 9000,
		MaxPendingConnections:      128,
		MaxSimultaneousConnections: -1,
		PoolCapacity:               64,
	}
}

// Endpoint returns the address to bind.
func (c *Config) Endpoint() netip.AddrPort {
	addr := c.ListenAddress
	if !addr.IsValid() {
		addr = netip.IPv4Unspecified()
	}
	return netip.AddrPortFrom(addr, uint16(c.ListenPort))
}

// Validate checks ranges.
func (c *Config) Validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return api.NewError(api.ErrCodeInvalidArgument, "listen port out of range").
			WithContext("port", c.ListenPort).Wrap(api.ErrInvalidArgument)
	}
	if c.MaxPendingConnections < 0 {
		return fmt.Errorf("max pending connections %d: %w", c.MaxPendingConnections, api.ErrInvalidArgument)
	}
	return nil
}

// Stats reports acceptor counters.
type Stats struct {
	Accepted  uint64 // connections delivered
	Failed    uint64 // failures reported to the handler
	Recycled  uint64 // failed operations put back into the pool
	Replaced  uint64 // failed operations discarded and replaced with fresh ones
	Available int    // free admission slots, -1 when unbounded
}
