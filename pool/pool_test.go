package pool_test

import (
	"sync"
	"testing"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlabPoolReuse(t *testing.T) {
	sp := pool.NewSlabPool(128, 4)
	b1 := sp.Get()
	require.Len(t, b1, 128)
	b1[0] = 7
	sp.Put(b1)

	b2 := sp.Get()
	assert.Equal(t, byte(7), b2[0], "region should be reused")
	st := sp.Stats()
	assert.Equal(t, uint64(1), st.TotalAlloc)
	assert.Equal(t, uint64(1), st.TotalReuse)

	sp.Put(make([]byte, 16))
	assert.Equal(t, 0, sp.Stats().Idle, "undersized region must be ignored")
}

func TestSlabPoolDropsWhenFull(t *testing.T) {
	sp := pool.NewSlabPool(8, 2)
	for i := 0; i < 3; i++ {
		sp.Put(make([]byte, 8))
	}
	st := sp.Stats()
	assert.Equal(t, 2, st.Idle)
	assert.Equal(t, uint64(1), st.Dropped)
}

func TestQueueOperationPool(t *testing.T) {
	p := pool.NewQueueOperationPool(2)
	_, ok := p.TryTake()
	assert.False(t, ok)

	op := api.NewOperation(nil)
	op.AcceptSocket = nil
	op.UserToken = "x"
	p.Put(op)
	got, ok := p.TryTake()
	require.True(t, ok)
	assert.Same(t, op, got)
	assert.Nil(t, got.UserToken)

	p.Put(api.NewOperation(nil))
	p.Put(api.NewOperation(nil))
	p.Put(api.NewOperation(nil))
	assert.Equal(t, uint64(1), p.Dropped())
}

func TestQueueOperationPoolConcurrent(t *testing.T) {
	p := pool.NewQueueOperationPool(64)
	factory := pool.NewAcceptFactory()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				op, ok := p.TryTake()
				if !ok {
					op = factory()
				}
				p.Put(op)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, p.Len(), 64)
}

func TestSlabFactoryRecycle(t *testing.T) {
	sp := pool.NewSlabPool(17, 4)
	newOp := pool.NewSlabFactory(sp)
	op := newOp()
	assert.Equal(t, 17, op.Count())
	pool.Recycle(sp, op)
	assert.Nil(t, op.Buffer())
	assert.Equal(t, 1, sp.Stats().Idle)
}
