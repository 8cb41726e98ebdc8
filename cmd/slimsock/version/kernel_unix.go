//go:build unix

// File: cmd/slimsock/version/kernel_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package version

import (
	"bytes"

	"golang.org/x/sys/unix"
)

func cstr(b []byte) string {
	if end := bytes.IndexByte(b, 0); end != -1 {
		return string(b[:end])
	}
	return string(b)
}

func kernel() (name, release, arch string) {
	var buf unix.Utsname
	if err := unix.Uname(&buf); err != nil {
		return "unknown", "unknown", "unknown"
	}
	return cstr(buf.Sysname[:]), cstr(buf.Release[:]), cstr(buf.Machine[:])
}
