// File: pool/operation_pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync/atomic"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/core/concurrency"
)

// OperationPool recycles completion buffers between accept cycles.
type OperationPool interface {
	// TryTake returns an idle operation, or false when the pool is empty.
	TryTake() (*api.Operation, bool)
	// Put returns an operation. The pool may drop it when full.
	Put(op *api.Operation)
}

// OperationFactory creates a fresh operation when the pool is empty or a
// broken one must be replaced.
type OperationFactory func() *api.Operation

// QueueOperationPool is an OperationPool over a bounded lock-free queue.
type QueueOperationPool struct {
	queue   *concurrency.LockFreeQueue[*api.Operation]
	dropped atomic.Uint64
}

// NewQueueOperationPool creates a pool keeping at most capacity idle operations.
func NewQueueOperationPool(capacity int) *QueueOperationPool {
	if capacity <= 0 {
		capacity = defaultPoolCapacity
	}
	return &QueueOperationPool{queue: concurrency.NewLockFreeQueue[*api.Operation](capacity)}
}

func (p *QueueOperationPool) TryTake() (*api.Operation, bool) {
	return p.queue.Dequeue()
}

func (p *QueueOperationPool) Put(op *api.Operation) {
	if op == nil {
		return
	}
	op.ResetSockets()
	op.UserToken = nil
	if !p.queue.Enqueue(op) {
		p.dropped.Add(1)
	}
}

// Len returns the approximate number of idle operations.
func (p *QueueOperationPool) Len() int { return p.queue.Len() }

// Dropped returns how many operations were discarded because the pool was full.
func (p *QueueOperationPool) Dropped() uint64 { return p.dropped.Load() }

// NewAcceptFactory returns a factory for accept operations. Accepts carry
// no payload, so the operations have no buffer.
func NewAcceptFactory() OperationFactory {
	return func() *api.Operation { return api.NewOperation(nil) }
}

// NewSlabFactory returns a factory whose operations own a region taken from slab.
func NewSlabFactory(slab *SlabPool) OperationFactory {
	return func() *api.Operation { return api.NewOperation(slab.Get()) }
}

// Recycle hands the operation's region back to slab. The operation must
// not be in flight and must not be used afterwards.
func Recycle(slab *SlabPool, op *api.Operation) {
	if op == nil || op.InFlight() {
		return
	}
	buf := op.Buffer()
	op.SetBufferSlice(nil)
	slab.Put(buf)
}

var _ OperationPool = (*QueueOperationPool)(nil)
