package serve_test

import (
	"io"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/momentics/slimsock/cmd/slimsock/serve"
	"github.com/momentics/slimsock/control"
	"github.com/momentics/slimsock/server"
	"github.com/momentics/slimsock/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoRoundTrip(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.Server.ListenAddress = netip.MustParseAddr("127.0.0.1")
	cfg.Server.ListenPort = 0
	cfg.Channel.ReceiveBufferSize = 8
	cfg.Channel.SendBufferSize = 5

	probes := control.NewProbes()
	echo := serve.NewEcho(tcp.New(), cfg, probes, nil)
	require.NoError(t, echo.Start())
	defer echo.Stop()

	conn, err := net.Dial("tcp", echo.Addr().String())
	require.NoError(t, err)
	msg := []byte("the quick brown fox jumps over the lazy dog")
	_, err = conn.Write(msg)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	got := make([]byte, len(msg))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.Equal(t, int64(1), echo.Active())

	snap := probes.Snapshot()
	assert.Equal(t, uint64(1), snap["acceptor"].(server.Stats).Accepted)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return echo.Active() == 0 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return echo.Released() == 1 }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), probes.Snapshot()["channels.closed"])
}
