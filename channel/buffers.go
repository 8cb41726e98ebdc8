// File: channel/buffers.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package channel

import (
	"io"

	"github.com/momentics/slimsock/api"
)

// Received is the receive notification bound to the receive buffer.
type Received struct {
	ch *Channel
	op *api.Operation
}

// NewReceived binds a notification to the receive operation.
func NewReceived(op *api.Operation) *Received {
	return &Received{op: op}
}

// Buffer returns the whole receive buffer.
func (r *Received) Buffer() []byte { return r.op.Buffer() }

// Offset returns where the received bytes start in Buffer.
func (r *Received) Offset() int { return r.op.Offset() }

// Size returns the number of received bytes.
func (r *Received) Size() int { return r.op.BytesTransferred }

// Bytes returns the received bytes without copying.
func (r *Received) Bytes() []byte { return r.op.Transferred() }

// Proceed issues the next receive. It returns false when the channel has
// been closed, in which case no more data will arrive.
func (r *Received) Proceed() bool { return r.ch.proceed() }

// Writer packs outgoing bytes into the send buffer's region.
type Writer struct {
	buf  []byte
	base int
	n    int
}

// NewWriter binds a writer to the current region of the send operation.
func NewWriter(op *api.Operation) *Writer {
	return &Writer{buf: op.Region(), base: op.Offset()}
}

// Write copies as much of p as fits and reports io.ErrShortWrite when p
// did not fit entirely.
func (w *Writer) Write(p []byte) (int, error) {
	n := copy(w.buf[w.n:], p)
	w.n += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Reset seeks back to the start of the region.
func (w *Writer) Reset() { w.n = 0 }

// Len returns the bytes written since Reset.
func (w *Writer) Len() int { return w.n }

// Cap returns the region size.
func (w *Writer) Cap() int { return len(w.buf) }

// Available returns the free space left.
func (w *Writer) Available() int { return len(w.buf) - w.n }

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte { return w.buf[:w.n] }
