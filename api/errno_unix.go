//go:build unix

// File: api/errno_unix.go
// Author: momentics <momentics@gmail.com>

package api

import (
	"errors"

	"golang.org/x/sys/unix"
)

var errnoCodes = map[unix.Errno]SocketErrorCode{
	unix.ECONNRESET:    ConnectionReset,
	unix.EPIPE:         ConnectionReset,
	unix.ECONNREFUSED:  ConnectionRefused,
	unix.ECONNABORTED:  ConnectionAborted,
	unix.ECANCELED:     OperationAborted,
	unix.EBADF:         OperationAborted,
	unix.ESHUTDOWN:     Shutdown,
	unix.ENOTCONN:      NotConnected,
	unix.ETIMEDOUT:     TimedOut,
	unix.EHOSTUNREACH:  HostUnreachable,
	unix.ENETUNREACH:   NetworkUnreachable,
	unix.EADDRINUSE:    AddressAlreadyInUse,
	unix.EADDRNOTAVAIL: AddressNotAvailable,
}

func classifyErrno(err error) (SocketErrorCode, bool) {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return 0, false
	}
	code, ok := errnoCodes[errno]
	return code, ok
}
