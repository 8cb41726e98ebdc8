// File: client/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import "github.com/momentics/slimsock/api"

// Handler receives the single outcome of each connect attempt.
type Handler interface {
	// OnConnected hands over the connected socket.
	OnConnected(c *Connector, sock api.Socket)
	// OnConnectFailed reports a failed or cancelled attempt; err is a *api.SocketError.
	OnConnectFailed(c *Connector, err error)
}

// HandlerFuncs adapts plain functions to Handler. A connected socket with
// no Connected func is closed.
type HandlerFuncs struct {
	Connected     func(c *Connector, sock api.Socket)
	ConnectFailed func(c *Connector, err error)
}

func (h HandlerFuncs) OnConnected(c *Connector, sock api.Socket) {
	if h.Connected == nil {
		_ = sock.Close()
		return
	}
	h.Connected(c, sock)
}

func (h HandlerFuncs) OnConnectFailed(c *Connector, err error) {
	if h.ConnectFailed != nil {
		h.ConnectFailed(c, err)
	}
}
