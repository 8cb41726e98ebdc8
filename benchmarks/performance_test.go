// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for slimsock components.

package benchmarks

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/channel"
	"github.com/momentics/slimsock/core/concurrency"
	"github.com/momentics/slimsock/fake"
	"github.com/momentics/slimsock/pool"
	"github.com/momentics/slimsock/server"
	"github.com/momentics/slimsock/transport/tcp"
)

// BenchmarkLockFreeQueue measures contended enqueue/dequeue pairs.
func BenchmarkLockFreeQueue(b *testing.B) {
	q := concurrency.NewLockFreeQueue[int](1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if !q.Enqueue(i) {
				q.Dequeue()
			}
			q.Dequeue()
			i++
		}
	})
}

// BenchmarkSlabPool measures region reuse.
func BenchmarkSlabPool(b *testing.B) {
	sp := pool.NewSlabPool(4096, 1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			sp.Put(sp.Get())
		}
	})
}

// BenchmarkEnforcer measures an uncontended take/release pair.
func BenchmarkEnforcer(b *testing.B) {
	e := server.NewEnforcer(64)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := e.TakeOne(ctx); err != nil {
				b.Error(err)
				return
			}
			e.ReleaseOne()
		}
	})
}

// BenchmarkChannelSendInline measures the send path with synchronous
// completions, so coalescing and packing dominate.
func BenchmarkChannelSendInline(b *testing.B) {
	for _, size := range []int{16, 512} {
		b.Run(fmt.Sprintf("%dB", size), func(b *testing.B) {
			sock := fake.NewSocket()
			sock.Inline = true
			ch := newChannel(b, sock, 4096, 1460)
			if err := ch.Start(); err != nil {
				b.Fatal(err)
			}
			msg := make([]byte, size)

			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := ch.Send(msg); err != nil {
					b.Fatal(err)
				}
			}
			b.StopTimer()
			ch.Close()
		})
	}
}

// BenchmarkChannelLoopback measures one-way throughput over a loopback
// TCP connection.
func BenchmarkChannelLoopback(b *testing.B) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		b.Fatal(err)
	}
	defer ln.Close()

	const size = 1024
	total := int64(b.N) * size
	drained := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			drained <- err
			return
		}
		defer c.Close()
		_, err = io.CopyN(io.Discard, c, total)
		drained <- err
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		b.Fatal(err)
	}
	ch := newChannel(b, tcp.New().Wrap(conn), 4096, 16384)
	if err := ch.Start(); err != nil {
		b.Fatal(err)
	}
	defer ch.Close()
	msg := make([]byte, size)

	b.SetBytes(size)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := ch.Send(msg); err != nil {
			b.Fatal(err)
		}
	}
	if err := <-drained; err != nil {
		b.Fatal(err)
	}
}

func newChannel(b *testing.B, sock api.Socket, recvSize, sendSize int) *channel.Channel {
	b.Helper()
	recvOp := api.NewOperation(make([]byte, recvSize))
	sendOp := api.NewOperation(make([]byte, sendSize))
	ch, err := channel.New(sock, recvOp, channel.NewReceived(recvOp), sendOp, channel.NewWriter(sendOp))
	if err != nil {
		b.Fatal(err)
	}
	return ch
}
