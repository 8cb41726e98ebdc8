// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.

package fake

import (
	"net/netip"
	"sync"

	"github.com/momentics/slimsock/api"
)

// Transport is a fake implementation of api.Transport for testing.
type Transport struct {
	mu        sync.Mutex
	listeners []*Listener
	sockets   []*Socket
	addrs     []netip.AddrPort
	backlogs  []int

	// ListenErr fails Listen when set.
	ListenErr error
	// InlineAccept makes new listeners complete queued accepts synchronously.
	InlineAccept bool
	// OnListen runs on every new listener before Listen returns.
	OnListen func(l *Listener)
}

// NewTransport creates a new fake transport with default settings.
func NewTransport() *Transport {
	return &Transport{}
}

// Listen implements api.Transport.Listen.
func (t *Transport) Listen(addr netip.AddrPort, backlog int) (api.Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ListenErr != nil {
		return nil, t.ListenErr
	}
	l := NewListener(Addr(addr.String()), backlog)
	l.Inline = t.InlineAccept
	t.listeners = append(t.listeners, l)
	t.addrs = append(t.addrs, addr)
	t.backlogs = append(t.backlogs, backlog)
	if t.OnListen != nil {
		t.OnListen(l)
	}
	return l, nil
}

// NewSocket implements api.Transport.NewSocket.
func (t *Transport) NewSocket(addr netip.Addr) (api.ConnectSocket, error) {
	if !addr.IsValid() {
		return nil, api.ErrInvalidArgument
	}
	s := NewSocket()
	t.mu.Lock()
	t.sockets = append(t.sockets, s)
	t.mu.Unlock()
	return s, nil
}

// Listener returns the most recent listener, nil if none.
func (t *Transport) Listener() *Listener {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.listeners) == 0 {
		return nil
	}
	return t.listeners[len(t.listeners)-1]
}

// Socket returns the most recent socket, nil if none.
func (t *Transport) Socket() *Socket {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sockets) == 0 {
		return nil
	}
	return t.sockets[len(t.sockets)-1]
}

// Sockets returns the number of sockets created.
func (t *Transport) Sockets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sockets)
}

// LastListen returns the address and backlog of the most recent Listen.
func (t *Transport) LastListen() (netip.AddrPort, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.addrs) == 0 {
		return netip.AddrPort{}, 0
	}
	return t.addrs[len(t.addrs)-1], t.backlogs[len(t.backlogs)-1]
}

var _ api.Transport = (*Transport)(nil)
