package control_test

import (
	"bytes"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
server:
  listen_address: 127.0.0.1
  listen_port: 7000
  max_pending_connections: 16
  max_simultaneous_connections: 2
client:
  address: "::1"
  port: 7001
channel:
  receive_buffer_size: 17
  send_buffer_size: 11
logging:
  verbose: true
`

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := control.Decode(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("127.0.0.1"), cfg.Server.ListenAddress)
	assert.Equal(t, 7000, cfg.Server.ListenPort)
	assert.Equal(t, 16, cfg.Server.MaxPendingConnections)
	assert.Equal(t, 2, cfg.Server.MaxSimultaneousConnections)
	assert.Equal(t, 64, cfg.Server.PoolCapacity, "default kept")
	assert.Equal(t, netip.MustParseAddr("::1"), cfg.Client.Address)
	assert.Equal(t, 17, cfg.Channel.ReceiveBufferSize)
	assert.Equal(t, 11, cfg.Channel.SendBufferSize)
	assert.Equal(t, 1024, cfg.Channel.SlabCapacity, "default kept")
	assert.True(t, cfg.Logging.Verbose)
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg, err := control.Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, control.DefaultConfig(), cfg)
}

func TestDecodeRejects(t *testing.T) {
	_, err := control.Decode(strings.NewReader("server:\n  bogus: 1\n"))
	assert.Error(t, err)

	_, err = control.Decode(strings.NewReader("server:\n  listen_port: 70000\n"))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)

	_, err = control.Decode(strings.NewReader("channel:\n  send_buffer_size: 0\n"))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestLoadAndEncode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slimsock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	cfg, err := control.Load(path)
	require.NoError(t, err)

	out, err := cfg.Encode()
	require.NoError(t, err)
	again, err := control.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	_, err = control.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProbes(t *testing.T) {
	p := control.NewProbes()
	control.RegisterRuntimeProbes(p)
	p.Register("accepted", func() any { return 3 })

	snap := p.Snapshot()
	assert.Equal(t, 3, snap["accepted"])
	assert.Contains(t, snap, "runtime.cpus")

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("stats", "probes", p)
	assert.Contains(t, buf.String(), "probes.accepted=3")

	p.Unregister("accepted")
	assert.NotContains(t, p.Snapshot(), "accepted")
}
