package server_test

import (
	"net"
	"net/netip"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/server"
	"github.com/momentics/slimsock/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loopbackConfig(maxConns int) *server.Config {
	cfg := server.DefaultConfig()
	cfg.ListenAddress = netip.MustParseAddr("127.0.0.1")
	cfg.ListenPort = 0
	cfg.MaxSimultaneousConnections = maxConns
	return cfg
}

func dial(t *testing.T, a *server.Acceptor) net.Conn {
	t.Helper()
	c, err := net.Dial("tcp", a.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAcceptorOverTCPBlockedHandlerDoesNotStall(t *testing.T) {
	delivered := make(chan api.Socket, 4)
	unblock := make(chan struct{})
	defer close(unblock)
	var calls atomic.Int32

	a := server.NewAcceptor(tcp.New(), nil, nil, loopbackConfig(-1), server.WithHandler(server.HandlerFuncs{
		Accepted: func(_ *server.Acceptor, s api.Socket) {
			delivered <- s
			if calls.Add(1) == 1 {
				<-unblock
			}
		},
	}))
	require.NoError(t, a.Start())
	defer a.Stop()

	dial(t, a)
	first := <-delivered
	defer first.Close()

	dial(t, a)
	select {
	case s := <-delivered:
		s.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("second connection not delivered while the first handler blocks")
	}
}

func TestAcceptorOverTCPAdmissionCap(t *testing.T) {
	const limit = 2
	delivered := make(chan api.Socket, 8)
	a := server.NewAcceptor(tcp.New(), nil, nil, loopbackConfig(limit), server.WithHandler(server.HandlerFuncs{
		Accepted: func(_ *server.Acceptor, s api.Socket) { delivered <- s },
	}))
	require.NoError(t, a.Start())
	defer a.Stop()

	for i := 0; i < limit+1; i++ {
		dial(t, a)
	}
	for i := 0; i < limit; i++ {
		select {
		case s := <-delivered:
			defer s.Close()
		case <-time.After(2 * time.Second):
			t.Fatalf("connection %d not delivered", i)
		}
	}
	select {
	case s := <-delivered:
		s.Close()
		t.Fatal("delivery beyond the admission cap")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, 0, a.Stats().Available)

	a.ReleaseOpenConnectionSlot()
	select {
	case s := <-delivered:
		s.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("released slot did not admit the waiting connection")
	}
	select {
	case <-delivered:
		t.Fatal("one release admitted more than one connection")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, uint64(limit+1), a.Stats().Accepted)
}
