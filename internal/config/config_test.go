package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tcp", cfg.Server.Transport)
	assert.Equal(t, 3, cfg.Client.ConnectRetries)
	assert.Equal(t, 8, cfg.World.SizeChunks)
	assert.False(t, cfg.World.RequireExisting, "по умолчанию отсутствующий мир генерируется")
}

func TestLoad_OverridesAndValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte(`
server:
  tcp_port: 9000
  transport: kcp
  handshake_timeout: 3s
world:
  size_chunks: -4
  storage: badger
  require_existing: true
render:
  view_distance: 0
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.GetTCPPort())
	assert.Equal(t, "kcp", cfg.Server.Transport)
	assert.Equal(t, 3*time.Second, cfg.Server.HandshakeTimeout)
	assert.Equal(t, 8, cfg.World.SizeChunks, "отрицательный размер мира должен замениться дефолтом")
	assert.Equal(t, "badger", cfg.World.Storage)
	assert.True(t, cfg.World.RequireExisting)
	assert.Equal(t, 1, cfg.Render.ViewDistance)
}

func TestLoad_UnknownTransportRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  transport: carrier-pigeon\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetTCPPort_EnvFallback(t *testing.T) {
	t.Setenv("BLOCKVERSE_TCP_PORT", "7001")
	s := ServerConfig{}
	assert.Equal(t, 7001, s.GetTCPPort())
}

func TestLoad_PositionsAndEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte(`
positions:
  backend: redis
  redis_addr: cache:6379
events:
  nats_url: nats://bus:4222
  buffer: 0
admin:
  token_ttl: -1s
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Positions.Backend)
	assert.Equal(t, "cache:6379", cfg.Positions.RedisAddr)
	assert.Equal(t, "nats://bus:4222", cfg.Events.NATSURL)
	assert.Equal(t, 1024, cfg.Events.Buffer)
	assert.Equal(t, "BLOCKVERSE", cfg.Events.Stream)
	assert.Equal(t, 24*time.Hour, cfg.Admin.TokenTTL)
}

func TestLoad_MySQLNeedsDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("positions:\n  backend: mysql\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
