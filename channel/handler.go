// File: channel/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import "github.com/momentics/slimsock/api"

// Handler receives channel notifications. Calls for one direction never
// overlap; calls for different directions may.
type Handler interface {
	// OnReceived delivers received bytes. The data is only valid until
	// Proceed is called, and no further data arrives before that.
	OnReceived(ch *Channel, r *Received)
	// OnSideClosed reports each direction once as it ends. A send direction
	// released because the receive direction ended reports SocketSuccess;
	// when a send was in flight at that time it arrives after OnClosed.
	OnSideClosed(ch *Channel, ev api.CloseEvent)
	// OnClosed fires exactly once, after the receive direction has ended.
	OnClosed(ch *Channel)
}

// HandlerFuncs adapts plain functions to Handler. A nil Received func
// discards data and proceeds.
type HandlerFuncs struct {
	Received   func(ch *Channel, r *Received)
	SideClosed func(ch *Channel, ev api.CloseEvent)
	Closed     func(ch *Channel)
}

func (h HandlerFuncs) OnReceived(ch *Channel, r *Received) {
	if h.Received == nil {
		r.Proceed()
		return
	}
	h.Received(ch, r)
}

func (h HandlerFuncs) OnSideClosed(ch *Channel, ev api.CloseEvent) {
	if h.SideClosed != nil {
		h.SideClosed(ch, ev)
	}
}

func (h HandlerFuncs) OnClosed(ch *Channel) {
	if h.Closed != nil {
		h.Closed(ch)
	}
}

// BuiltinHandler discards everything. Embed it to override single methods.
type BuiltinHandler struct{}

func (BuiltinHandler) OnReceived(_ *Channel, r *Received)    { r.Proceed() }
func (BuiltinHandler) OnSideClosed(*Channel, api.CloseEvent) {}
func (BuiltinHandler) OnClosed(*Channel)                     {}
