package tcp_test

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loopback = netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), 0)

// await submits through fn and waits for the completion callback.
func await(t *testing.T, op *api.Operation, fn func(*api.Operation) (bool, error)) *api.Operation {
	t.Helper()
	done := make(chan *api.Operation, 1)
	op.SetCompleted(func(o *api.Operation) { done <- o })
	pending, err := fn(op)
	require.NoError(t, err)
	if !pending {
		return op
	}
	select {
	case o := <-done:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for completion")
		return nil
	}
}

func listen(t *testing.T, tr *tcp.Transport) (api.Listener, netip.AddrPort) {
	t.Helper()
	ln, err := tr.Listen(loopback, 16)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).AddrPort()
}

func TestAcceptConnectRoundTrip(t *testing.T) {
	tr := tcp.New()
	ln, addr := listen(t, tr)

	acceptOp := api.NewOperation(nil)
	accepted := make(chan *api.Operation, 1)
	acceptOp.SetCompleted(func(o *api.Operation) { accepted <- o })
	pending, err := ln.AcceptAsync(acceptOp)
	require.NoError(t, err)
	require.True(t, pending)

	sock, err := tr.NewSocket(addr.Addr())
	require.NoError(t, err)
	defer sock.Close()
	require.NoError(t, sock.SetNoDelay(true))

	connectOp := api.NewOperation(nil)
	connectOp.RemoteEndPoint = addr
	res := await(t, connectOp, sock.ConnectAsync)
	require.Equal(t, api.SocketSuccess, res.SocketError)
	require.Same(t, sock, res.ConnectSocket.(*tcp.Socket))

	var server api.Socket
	select {
	case o := <-accepted:
		require.Equal(t, api.SocketSuccess, o.SocketError)
		server = o.AcceptSocket
	case <-time.After(5 * time.Second):
		t.Fatal("accept timeout")
	}
	defer server.Close()

	sendOp := api.NewOperation([]byte("hello"))
	res = await(t, sendOp, sock.SendAsync)
	require.Equal(t, 5, res.BytesTransferred)

	recvOp := api.NewOperation(make([]byte, 16))
	res = await(t, recvOp, server.ReceiveAsync)
	assert.Equal(t, "hello", string(res.Transferred()))
	assert.Equal(t, api.SocketSuccess, res.SocketError)

	// Orderly shutdown reads as zero bytes without an error.
	require.NoError(t, sock.Shutdown(api.ShutdownWrite))
	res = await(t, recvOp, server.ReceiveAsync)
	assert.Equal(t, 0, res.BytesTransferred)
	assert.Equal(t, api.SocketSuccess, res.SocketError)
}

func TestCloseAbortsPendingReceive(t *testing.T) {
	tr := tcp.New()
	ln, addr := listen(t, tr)

	acceptOp := api.NewOperation(nil)
	accepted := make(chan api.Socket, 1)
	acceptOp.SetCompleted(func(o *api.Operation) { accepted <- o.AcceptSocket })
	_, err := ln.AcceptAsync(acceptOp)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	server := <-accepted

	recvOp := api.NewOperation(make([]byte, 8))
	done := make(chan *api.Operation, 1)
	recvOp.SetCompleted(func(o *api.Operation) { done <- o })
	pending, err := server.ReceiveAsync(recvOp)
	require.NoError(t, err)
	require.True(t, pending)

	// A second receive while one is outstanding is refused.
	_, err = server.ReceiveAsync(recvOp)
	assert.ErrorIs(t, err, api.ErrOperationInFlight)

	require.NoError(t, server.Close())
	select {
	case o := <-done:
		assert.Equal(t, api.OperationAborted, o.SocketError)
	case <-time.After(5 * time.Second):
		t.Fatal("receive was not aborted")
	}
	assert.ErrorIs(t, server.Close(), net.ErrClosed)

	_, err = server.ReceiveAsync(recvOp)
	assert.Equal(t, api.OperationAborted, api.CodeOf(err))
}

func TestConnectRefused(t *testing.T) {
	tr := tcp.New()
	ln, addr := listen(t, tr)
	require.NoError(t, ln.Close())

	sock, err := tr.NewSocket(addr.Addr())
	require.NoError(t, err)
	defer sock.Close()
	op := api.NewOperation(nil)
	op.RemoteEndPoint = addr
	res := await(t, op, sock.ConnectAsync)
	assert.Equal(t, api.ConnectionRefused, res.SocketError)
	assert.Nil(t, res.ConnectSocket)
}

func TestListenerCloseAbortsAccept(t *testing.T) {
	tr := tcp.New()
	ln, err := tr.Listen(loopback, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, ln.(*tcp.Listener).Backlog())

	op := api.NewOperation(nil)
	done := make(chan *api.Operation, 1)
	op.SetCompleted(func(o *api.Operation) { done <- o })
	_, err = ln.AcceptAsync(op)
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	select {
	case o := <-done:
		assert.Equal(t, api.OperationAborted, o.SocketError)
	case <-time.After(5 * time.Second):
		t.Fatal("accept was not aborted")
	}
}
