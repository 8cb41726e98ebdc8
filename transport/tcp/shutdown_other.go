//go:build !unix

// File: transport/tcp/shutdown_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"errors"
	"net"

	"github.com/momentics/slimsock/api"
)

func shutdownConn(conn net.Conn, how api.ShutdownHow) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return api.ErrNotSupported
	}
	switch how {
	case api.ShutdownRead:
		return tc.CloseRead()
	case api.ShutdownWrite:
		return tc.CloseWrite()
	case api.ShutdownBoth:
		return errors.Join(tc.CloseRead(), tc.CloseWrite())
	}
	return api.ErrInvalidArgument
}
