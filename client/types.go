// File: client/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"fmt"
	"net/netip"

	"github.com/momentics/slimsock/api"
)

// Config holds the connect target. It must be set before Connect.
type Config struct {
	Address netip.Addr `yaml:"address"`
	Port    int        `yaml:"port"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address: netip.MustParseAddr("127.0.0.1"),
		Port:    9000,
	}
}

// Endpoint returns the address to connect to.
func (c *Config) Endpoint() netip.AddrPort {
	return netip.AddrPortFrom(c.Address, uint16(c.Port))
}

// Validate checks the target.
func (c *Config) Validate() error {
	if !c.Address.IsValid() {
		return fmt.Errorf("connect address unset: %w", api.ErrInvalidArgument)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("connect port %d: %w", c.Port, api.ErrInvalidArgument)
	}
	return nil
}
