// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration file loading and runtime introspection for the slimsock
// command.
//
// Provides:
//   - YAML configuration with server, client, channel and logging sections
//   - A probe registry that snapshots component statistics on demand
package control
