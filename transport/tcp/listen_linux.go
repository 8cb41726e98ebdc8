//go:build linux

// File: transport/tcp/listen_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tcp

import (
	"fmt"
	"net"
	"net/netip"
	"os"

	"golang.org/x/sys/unix"
)

// listenBacklog creates the listening socket by hand so the backlog reaches listen(2).
func listenBacklog(addr netip.AddrPort, backlog int, reuseAddr bool) (net.Listener, error) {
	ip := addr.Addr()
	if !ip.IsValid() {
		ip = netip.IPv4Unspecified()
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}

	family := unix.AF_INET
	var sa unix.Sockaddr
	if ip.Is4() || ip.Is4In6() {
		sa = &unix.SockaddrInet4{Port: int(addr.Port()), Addr: ip.Unmap().As4()}
	} else {
		family = unix.AF_INET6
		sa = &unix.SockaddrInet6{Port: int(addr.Port()), Addr: ip.As16()}
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if reuseAddr {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("set SO_REUSEADDR: %w", err)
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind: %w", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("listen: %w", err)
	}

	// FileListener dups the descriptor, so the file is closed either way.
	f := os.NewFile(uintptr(fd), "tcp:"+addr.String())
	defer f.Close()
	ln, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("file listener: %w", err)
	}
	return ln, nil
}
