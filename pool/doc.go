// Package pool
// Author: momentics <momentics@gmail.com>
//
// Recycling layer for completion buffers. SlabPool hands out fixed-size
// byte regions, QueueOperationPool recycles whole operations between
// accept cycles, and OperationFactory builds fresh ones on demand.
// All pools are lock-free and safe for concurrent use.
package pool
