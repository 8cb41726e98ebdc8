// Package channel
// Author: momentics <momentics@gmail.com>
//
// Duplex data channel over a completion socket. Outgoing messages are
// queued and packed into one send buffer per send cycle; incoming data is
// delivered straight from the receive buffer and the next receive is only
// issued when the consumer calls Received.Proceed. Each direction closes
// independently, the socket is shut down and closed exactly once, and
// OnClosed fires once when the receive direction ends.
package channel
