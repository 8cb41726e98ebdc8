// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable completion behavior for the socket,
// listener and transport contracts, including synchronous (inline)
// completions that the TCP transport never produces.
package fake
