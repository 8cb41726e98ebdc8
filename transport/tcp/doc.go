// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp is the completion transport over the operating system's TCP
// stack. Each socket runs one receive pump and one send pump goroutine,
// started on first use and fed through single-slot channels, so at most one
// operation per direction is outstanding. Listening sockets are created
// with an explicit backlog through golang.org/x/sys/unix where available.
package tcp
