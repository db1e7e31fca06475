package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "/dev/ttyUSB0", cfg.ECU.Port)
	assert.Equal(t, "dual-frame", cfg.ECU.Generation)
	assert.Equal(t, 4, cfg.ECU.PollHz)
	assert.False(t, cfg.ECU.Demo)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
ecu:
  port: /dev/ttyAMA0
  generation: single-frame
  poll_hz: 2
server:
  listen_addr: ":9000"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg := LoadConfig(path)
	assert.Equal(t, "/dev/ttyAMA0", cfg.ECU.Port)
	assert.Equal(t, "single-frame", cfg.ECU.Generation)
	assert.Equal(t, 2, cfg.ECU.PollHz)
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
}

func TestLoadConfigPartialFile(t *testing.T) {
	// unset keys keep their defaults
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ecu:\n  demo: true\n"), 0o644))

	cfg := LoadConfig(path)
	assert.True(t, cfg.ECU.Demo)
	assert.Equal(t, "/dev/ttyUSB0", cfg.ECU.Port)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ecu: [not a map"), 0o644))

	cfg := LoadConfig(path)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEMS_PORT", "/dev/ttyS3")
	t.Setenv("MEMS_GENERATION", "single-frame")
	t.Setenv("MEMS_POLL_HZ", "10")
	t.Setenv("MEMS_DEMO", "true")
	t.Setenv("LISTEN_ADDR", "127.0.0.1:8081")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, "/dev/ttyS3", cfg.ECU.Port)
	assert.Equal(t, "single-frame", cfg.ECU.Generation)
	assert.Equal(t, 10, cfg.ECU.PollHz)
	assert.True(t, cfg.ECU.Demo)
	assert.Equal(t, "127.0.0.1:8081", cfg.Server.ListenAddr)
}

func TestEnvOverridesBadPollRate(t *testing.T) {
	t.Setenv("MEMS_POLL_HZ", "fast")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, 4, cfg.ECU.PollHz, "unparseable override is ignored")
}
