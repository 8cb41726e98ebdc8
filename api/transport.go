// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Completion-style socket abstraction. Every *Async call returns
// pending=true when the operation's callback will run later on a
// transport goroutine, or pending=false when the outcome is already
// stored in the operation and no callback follows. A non-nil error means
// nothing was submitted.

package api

import (
	"net"
	"net/netip"
)

// Socket is a connected full-duplex stream socket.
type Socket interface {
	// ReceiveAsync reads into op's region.
	ReceiveAsync(op *Operation) (pending bool, err error)

	// SendAsync writes op's region.
	SendAsync(op *Operation) (pending bool, err error)

	// Shutdown disables one or both halves of the connection.
	Shutdown(how ShutdownHow) error

	// Close releases the socket. Pending operations complete with OperationAborted.
	Close() error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// ConnectSocket is a client socket that has not connected yet.
type ConnectSocket interface {
	Socket

	// SetNoDelay toggles Nagle's algorithm.
	SetNoDelay(noDelay bool) error

	// ConnectAsync connects to op.RemoteEndPoint. On success op.ConnectSocket
	// holds the connected socket.
	ConnectAsync(op *Operation) (pending bool, err error)
}

// Listener accepts connections into op.AcceptSocket.
type Listener interface {
	AcceptAsync(op *Operation) (pending bool, err error)
	Addr() net.Addr
	Close() error
}

// Transport creates listeners and client sockets.
type Transport interface {
	// Listen binds addr and listens with the given backlog.
	Listen(addr netip.AddrPort, backlog int) (Listener, error)

	// NewSocket creates an unconnected stream socket for the address family of addr.
	NewSocket(addr netip.Addr) (ConnectSocket, error)
}
