//go:build !unix

// File: cmd/slimsock/version/kernel_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package version

func kernel() (name, release, arch string) {
	return "unknown", "unknown", "unknown"
}
