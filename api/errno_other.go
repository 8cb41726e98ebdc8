//go:build !unix

// File: api/errno_other.go
// Author: momentics <momentics@gmail.com>

package api

func classifyErrno(error) (SocketErrorCode, bool) { return 0, false }
