// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

import "fmt"

// DuplexSide names one direction of a full-duplex connection.
type DuplexSide int

const (
	SideReceive DuplexSide = iota
	SideSend
)

func (s DuplexSide) String() string {
	switch s {
	case SideReceive:
		return "receive"
	case SideSend:
		return "send"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// SideState tracks the lifecycle of one direction.
type SideState int32

const (
	SideActive SideState = iota
	SideClosing
	SideClosed
)

func (s SideState) String() string {
	switch s {
	case SideActive:
		return "active"
	case SideClosing:
		return "closing"
	case SideClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseEvent describes why one direction of a channel stopped.
// Code is SocketSuccess when the direction ended without an OS error
// (orderly end of stream, or a handler failure carried in Err).
type CloseEvent struct {
	Side DuplexSide
	Code SocketErrorCode
	Err  error
}

func (e CloseEvent) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s closed: %s: %v", e.Side, e.Code, e.Err)
	}
	return fmt.Sprintf("%s closed: %s", e.Side, e.Code)
}

// ShutdownHow selects which half of a socket to shut down.
type ShutdownHow int

const (
	ShutdownRead ShutdownHow = iota
	ShutdownWrite
	ShutdownBoth
)
