// File: pool/slab_pool.go
// Package pool implements lock-free slab allocation of fixed-size regions.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync/atomic"

	"github.com/momentics/slimsock/core/concurrency"
)

const defaultPoolCapacity = 4096

// SlabPool recycles byte regions of one fixed size.
type SlabPool struct {
	size  int
	queue *concurrency.LockFreeQueue[[]byte]

	totalAlloc   atomic.Uint64
	totalReuse   atomic.Uint64
	totalFree    atomic.Uint64
	totalDropped atomic.Uint64
}

// SlabStats reports allocation counters.
type SlabStats struct {
	Size       int
	TotalAlloc uint64
	TotalReuse uint64
	TotalFree  uint64
	Dropped    uint64
	Idle       int
}

// NewSlabPool creates a pool of size-byte regions keeping at most
// capacity idle regions. capacity <= 0 selects the default.
func NewSlabPool(size, capacity int) *SlabPool {
	if size <= 0 {
		panic("pool: slab size must be positive")
	}
	if capacity <= 0 {
		capacity = defaultPoolCapacity
	}
	return &SlabPool{
		size:  size,
		queue: concurrency.NewLockFreeQueue[[]byte](capacity),
	}
}

// Size returns the region size.
func (sp *SlabPool) Size() int { return sp.size }

// Get returns a region of exactly Size bytes.
func (sp *SlabPool) Get() []byte {
	if buf, ok := sp.queue.Dequeue(); ok {
		sp.totalReuse.Add(1)
		return buf
	}
	sp.totalAlloc.Add(1)
	return make([]byte, sp.size)
}

// Put returns a region. Regions of a different capacity are ignored.
func (sp *SlabPool) Put(buf []byte) {
	if cap(buf) < sp.size {
		return
	}
	if sp.queue.Enqueue(buf[:sp.size]) {
		sp.totalFree.Add(1)
		return
	}
	// Pool full, leave it to the GC.
	sp.totalDropped.Add(1)
}

// Stats returns a snapshot of the counters.
func (sp *SlabPool) Stats() SlabStats {
	return SlabStats{
		Size:       sp.size,
		TotalAlloc: sp.totalAlloc.Load(),
		TotalReuse: sp.totalReuse.Load(),
		TotalFree:  sp.totalFree.Load(),
		Dropped:    sp.totalDropped.Load(),
		Idle:       sp.queue.Len(),
	}
}
