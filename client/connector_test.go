package client_test

import (
	"context"
	"net"
	"net/netip"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/client"
	"github.com/momentics/slimsock/fake"
	"github.com/momentics/slimsock/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	sock api.Socket
	err  error
}

func recordingHandler() (client.Handler, chan outcome) {
	ch := make(chan outcome, 16)
	return client.HandlerFuncs{
		Connected:     func(_ *client.Connector, s api.Socket) { ch <- outcome{sock: s} },
		ConnectFailed: func(_ *client.Connector, err error) { ch <- outcome{err: err} },
	}, ch
}

func fakeConfig() *client.Config {
	return &client.Config{Address: netip.MustParseAddr("10.0.0.1"), Port: 80}
}

func TestConnectorSuccess(t *testing.T) {
	tr := fake.NewTransport()
	h, out := recordingHandler()
	c := client.NewConnector(tr, fakeConfig(), client.WithHandler(h))

	require.NoError(t, c.Connect())
	sock := tr.Socket()
	require.NotNil(t, sock)
	assert.True(t, sock.NoDelay(), "Nagle must be disabled")
	assert.True(t, c.Connecting())
	assert.ErrorIs(t, c.Connect(), api.ErrAlreadyConnecting)
	assert.Equal(t, 1, tr.Sockets())

	require.True(t, sock.ResolveConnect(nil))
	o := <-out
	require.NoError(t, o.err)
	assert.Same(t, sock, o.sock)
	assert.False(t, c.Connecting())
	assert.False(t, sock.Closed())
	assert.False(t, c.StopConnecting())
}

func TestConnectorFailure(t *testing.T) {
	tr := fake.NewTransport()
	h, out := recordingHandler()
	c := client.NewConnector(tr, fakeConfig(), client.WithHandler(h))

	require.NoError(t, c.Connect())
	tr.Socket().ResolveConnect(os.NewSyscallError("connect", syscall.ECONNREFUSED))
	o := <-out
	require.Error(t, o.err)
	assert.Equal(t, api.ConnectionRefused, api.CodeOf(o.err))
	assert.True(t, tr.Socket().Closed())

	// A new attempt may start after the outcome.
	require.NoError(t, c.Connect())
	assert.Equal(t, 2, tr.Sockets())
}

func TestConnectorStopReportsAbortOnce(t *testing.T) {
	tr := fake.NewTransport()
	h, out := recordingHandler()
	c := client.NewConnector(tr, fakeConfig(), client.WithHandler(h))

	require.NoError(t, c.Connect())
	assert.True(t, c.StopConnecting())
	assert.False(t, c.StopConnecting())

	o := <-out
	require.Error(t, o.err)
	assert.Equal(t, api.OperationAborted, api.CodeOf(o.err))
	select {
	case extra := <-out:
		t.Fatalf("second outcome: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConnectorStopRacesCompletion(t *testing.T) {
	for i := 0; i < 500; i++ {
		tr := fake.NewTransport()
		h, out := recordingHandler()
		c := client.NewConnector(tr, fakeConfig(), client.WithHandler(h))
		require.NoError(t, c.Connect())
		sock := tr.Socket()

		var wg sync.WaitGroup
		var stopped bool
		wg.Add(2)
		go func() { defer wg.Done(); sock.ResolveConnect(nil) }()
		go func() { defer wg.Done(); stopped = c.StopConnecting() }()
		wg.Wait()

		o := <-out
		if stopped {
			require.Error(t, o.err, "cancelled attempt reported success")
			assert.Equal(t, api.OperationAborted, api.CodeOf(o.err))
		} else {
			require.NoError(t, o.err)
		}
		select {
		case extra := <-out:
			t.Fatalf("iteration %d: second outcome %+v", i, extra)
		default:
		}
	}
}

func TestConnectorValidatesConfig(t *testing.T) {
	c := client.NewConnector(fake.NewTransport(), &client.Config{})
	assert.ErrorIs(t, c.Connect(), api.ErrInvalidArgument)
	assert.False(t, c.Connecting())
}

func TestConnectorOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	addr := ln.Addr().(*net.TCPAddr).AddrPort()

	h, out := recordingHandler()
	c := client.NewConnector(tcp.New(), &client.Config{Address: addr.Addr(), Port: int(addr.Port())},
		client.WithHandler(h))
	require.NoError(t, c.Connect())

	select {
	case o := <-out:
		require.NoError(t, o.err)
		assert.Equal(t, addr.String(), o.sock.RemoteAddr().String())
		o.sock.Close()
	case <-time.After(5 * time.Second):
		t.Fatal("connect timeout")
	}
}

func TestFutureConnectorResolves(t *testing.T) {
	tr := fake.NewTransport()
	h, out := recordingHandler()
	fc := client.NewFutureConnector(tr, fakeConfig(), client.WithHandler(h))

	f, err := fc.ConnectAsync()
	require.NoError(t, err)
	_, err = fc.ConnectAsync()
	assert.ErrorIs(t, err, api.ErrAlreadyConnecting)

	tr.Socket().ResolveConnect(nil)
	sock, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Same(t, tr.Socket(), sock)
	assert.NoError(t, f.Err())
	assert.NoError(t, (<-out).err, "handler sees the outcome too")
}

func TestFutureConnectorRejects(t *testing.T) {
	tr := fake.NewTransport()
	fc := client.NewFutureConnector(tr, fakeConfig())

	f, err := fc.ConnectAsync()
	require.NoError(t, err)
	tr.Socket().ResolveConnect(os.NewSyscallError("connect", syscall.ETIMEDOUT))
	_, err = f.Await(context.Background())
	assert.Equal(t, api.TimedOut, api.CodeOf(err))
}

func TestFutureConnectorCancel(t *testing.T) {
	tr := fake.NewTransport()
	h, out := recordingHandler()
	fc := client.NewFutureConnector(tr, fakeConfig(), client.WithHandler(h))

	f, err := fc.ConnectAsync()
	require.NoError(t, err)
	assert.True(t, fc.StopConnecting())

	_, err = f.Await(context.Background())
	assert.ErrorIs(t, err, api.ErrConnectCanceled)
	assert.Equal(t, api.OperationAborted, api.CodeOf(err))

	o := <-out
	assert.Equal(t, api.OperationAborted, api.CodeOf(o.err))
	assert.ErrorIs(t, f.Err(), api.ErrConnectCanceled, "late failure must not overwrite cancellation")

	// The connector is reusable after cancellation.
	f2, err := fc.ConnectAsync()
	require.NoError(t, err)
	tr.Socket().ResolveConnect(nil)
	_, err = f2.Await(context.Background())
	assert.NoError(t, err)
}

func TestFutureSettlesOnceUnderRace(t *testing.T) {
	for i := 0; i < 500; i++ {
		tr := fake.NewTransport()
		fc := client.NewFutureConnector(tr, fakeConfig())
		f, err := fc.ConnectAsync()
		require.NoError(t, err)
		sock := tr.Socket()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); sock.ResolveConnect(nil) }()
		go func() { defer wg.Done(); fc.StopConnecting() }()
		wg.Wait()

		got, err := f.Await(context.Background())
		if err == nil {
			assert.Same(t, sock, got)
			assert.False(t, sock.Closed(), "resolved socket must stay open")
		} else {
			assert.True(t, sock.Closed(), "cancelled socket must not leak")
		}
	}
}

func TestFutureAwaitHonoursContext(t *testing.T) {
	fc := client.NewFutureConnector(fake.NewTransport(), fakeConfig())
	f, err := fc.ConnectAsync()
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	select {
	case <-f.Done():
		t.Fatal("future settled without an outcome")
	default:
	}
}

func TestFutureResultIsNonBlocking(t *testing.T) {
	tr := fake.NewTransport()
	fc := client.NewFutureConnector(tr, fakeConfig())
	f, err := fc.ConnectAsync()
	require.NoError(t, err)

	_, ok, _ := f.Result()
	assert.False(t, ok)

	tr.Socket().ResolveConnect(nil)
	<-f.Done()
	sock, ok, err := f.Result()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Same(t, tr.Socket(), sock)
}

// stopOnNoDelay is a connect socket that runs stop while the connector is
// configuring it, after the attempt is registered but before the submit.
type stopOnNoDelay struct {
	*fake.Socket
	stop func()
}

func (s stopOnNoDelay) SetNoDelay(v bool) error {
	s.stop()
	return s.Socket.SetNoDelay(v)
}

type stoppingTransport struct {
	*fake.Transport
	stop func()
}

func (t stoppingTransport) NewSocket(addr netip.Addr) (api.ConnectSocket, error) {
	s, err := t.Transport.NewSocket(addr)
	if err != nil {
		return nil, err
	}
	return stopOnNoDelay{Socket: s.(*fake.Socket), stop: t.stop}, nil
}

func TestConnectorStopBeforeSubmitReportsAbort(t *testing.T) {
	h, out := recordingHandler()
	var c *client.Connector
	stopped := false
	tr := stoppingTransport{Transport: fake.NewTransport(), stop: func() { stopped = c.StopConnecting() }}
	c = client.NewConnector(tr, fakeConfig(), client.WithHandler(h))

	require.NoError(t, c.Connect(), "a stopped attempt is not a submit failure")
	assert.True(t, stopped)

	select {
	case o := <-out:
		require.Error(t, o.err)
		assert.Equal(t, api.OperationAborted, api.CodeOf(o.err))
		assert.ErrorIs(t, o.err, api.ErrConnectCanceled)
	case <-time.After(time.Second):
		t.Fatal("abort not reported")
	}
	select {
	case o := <-out:
		t.Fatalf("unexpected second outcome %+v", o)
	case <-time.After(30 * time.Millisecond):
	}
	assert.True(t, tr.Socket().Closed())
	assert.False(t, c.Connecting())
}
