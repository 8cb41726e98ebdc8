// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import "github.com/momentics/slimsock/api"

// Handler receives accept notifications. Both methods run on transport
// goroutines and must not block for long: the next accept is already
// outstanding but the admission wait is not.
type Handler interface {
	// OnAccepted hands over a connected socket. The receiver owns it and
	// must call ReleaseOpenConnectionSlot when it is done with it.
	OnAccepted(a *Acceptor, sock api.Socket)
	// OnAcceptFailed reports an accept that failed with err (a *api.SocketError).
	OnAcceptFailed(a *Acceptor, err error)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops;
// an accepted socket with no Accepted func is closed and its slot released.
type HandlerFuncs struct {
	Accepted     func(a *Acceptor, sock api.Socket)
	AcceptFailed func(a *Acceptor, err error)
}

func (h HandlerFuncs) OnAccepted(a *Acceptor, sock api.Socket) {
	if h.Accepted == nil {
		_ = sock.Close()
		a.ReleaseOpenConnectionSlot()
		return
	}
	h.Accepted(a, sock)
}

func (h HandlerFuncs) OnAcceptFailed(a *Acceptor, err error) {
	if h.AcceptFailed != nil {
		h.AcceptFailed(a, err)
	}
}
