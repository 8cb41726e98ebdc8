// File: transport/tcp/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/momentics/slimsock/api"
)

// Transport creates completion listeners and client sockets over TCP.
type Transport struct {
	// NoDelay disables Nagle's algorithm on accepted sockets.
	NoDelay bool
	// KeepAlive is the keep-alive period; negative disables keep-alives.
	KeepAlive time.Duration
	// ReuseAddr sets SO_REUSEADDR on listening sockets.
	ReuseAddr bool
}

// Option customizes a Transport.
type Option func(*Transport)

// WithNoDelay sets NoDelay for accepted sockets.
func WithNoDelay(on bool) Option { return func(t *Transport) { t.NoDelay = on } }

// WithKeepAlive sets the keep-alive period.
func WithKeepAlive(d time.Duration) Option { return func(t *Transport) { t.KeepAlive = d } }

// WithReuseAddr toggles SO_REUSEADDR on listeners.
func WithReuseAddr(on bool) Option { return func(t *Transport) { t.ReuseAddr = on } }

// New returns a Transport with defaults: NoDelay, SO_REUSEADDR, 15s keep-alive.
func New(opts ...Option) *Transport {
	t := &Transport{NoDelay: true, KeepAlive: 15 * time.Second, ReuseAddr: true}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Listen binds addr and listens with backlog. A non-positive backlog selects
// the system maximum.
func (t *Transport) Listen(addr netip.AddrPort, backlog int) (api.Listener, error) {
	ln, err := listenBacklog(addr, backlog, t.ReuseAddr)
	if err != nil {
		return nil, api.NewSocketError("listen", fmt.Errorf("listen %s: %w", addr, err))
	}
	return newListener(t, ln, backlog), nil
}

// NewSocket creates an unconnected socket for the family of addr.
func (t *Transport) NewSocket(addr netip.Addr) (api.ConnectSocket, error) {
	if !addr.IsValid() {
		return nil, fmt.Errorf("new socket: %w", api.ErrInvalidArgument)
	}
	network := "tcp4"
	if addr.Is6() && !addr.Is4In6() {
		network = "tcp6"
	}
	return newSocket(t, network, nil), nil
}

// Wrap adopts an already connected conn.
func (t *Transport) Wrap(conn net.Conn) *Socket {
	t.tune(conn)
	return newSocket(t, conn.RemoteAddr().Network(), conn)
}

func (t *Transport) tune(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tc.SetNoDelay(t.NoDelay)
	if t.KeepAlive > 0 {
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(t.KeepAlive)
	} else if t.KeepAlive < 0 {
		_ = tc.SetKeepAlive(false)
	}
}

var _ api.Transport = (*Transport)(nil)
