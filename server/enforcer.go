// File: server/enforcer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Enforcer limits how many accepted connections may be open at once.
type Enforcer interface {
	// TakeOne blocks until a slot is free or ctx is done.
	TakeOne(ctx context.Context) error
	// TryTakeOne takes a slot only if one is free right now.
	TryTakeOne() bool
	// ReleaseOne frees a slot. Releasing more than was taken is ignored.
	ReleaseOne()
	// Available returns the number of free slots, -1 if unbounded.
	Available() int
}

// NewEnforcer returns Unbounded for a negative max, otherwise a Bounded enforcer.
func NewEnforcer(max int) Enforcer {
	if max < 0 {
		return Unbounded{}
	}
	return NewBounded(max)
}

// Bounded is a counting semaphore that saturates at its capacity.
type Bounded struct {
	sem  *semaphore.Weighted
	max  int64
	held atomic.Int64
}

// NewBounded creates an enforcer with max slots, all free.
func NewBounded(max int) *Bounded {
	return &Bounded{sem: semaphore.NewWeighted(int64(max)), max: int64(max)}
}

func (b *Bounded) TakeOne(ctx context.Context) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	b.held.Add(1)
	return nil
}

func (b *Bounded) TryTakeOne() bool {
	if !b.sem.TryAcquire(1) {
		return false
	}
	b.held.Add(1)
	return true
}

func (b *Bounded) ReleaseOne() {
	for {
		h := b.held.Load()
		if h <= 0 {
			return
		}
		if b.held.CompareAndSwap(h, h-1) {
			b.sem.Release(1)
			return
		}
	}
}

func (b *Bounded) Available() int { return int(b.max - b.held.Load()) }

// Unbounded admits everything.
type Unbounded struct{}

func (Unbounded) TakeOne(context.Context) error { return nil }
func (Unbounded) TryTakeOne() bool              { return true }
func (Unbounded) ReleaseOne()                   {}
func (Unbounded) Available() int                { return -1 }
