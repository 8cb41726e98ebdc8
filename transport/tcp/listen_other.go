//go:build !linux

// File: transport/tcp/listen_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"context"
	"net"
	"net/netip"
)

// listenBacklog falls back to the runtime's listener, which uses the system
// default backlog.
func listenBacklog(addr netip.AddrPort, _ int, _ bool) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(context.Background(), "tcp", addr.String())
}
