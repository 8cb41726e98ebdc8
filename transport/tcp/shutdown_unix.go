//go:build unix

// File: transport/tcp/shutdown_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"net"
	"syscall"

	"github.com/momentics/slimsock/api"
	"golang.org/x/sys/unix"
)

var shutdownModes = [...]int{
	api.ShutdownRead:  unix.SHUT_RD,
	api.ShutdownWrite: unix.SHUT_WR,
	api.ShutdownBoth:  unix.SHUT_RDWR,
}

func shutdownConn(conn net.Conn, how api.ShutdownHow) error {
	if how < api.ShutdownRead || how > api.ShutdownBoth {
		return api.ErrInvalidArgument
	}
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return api.ErrNotSupported
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := rc.Control(func(fd uintptr) {
		serr = unix.Shutdown(int(fd), shutdownModes[how])
	}); err != nil {
		return err
	}
	return serr
}
