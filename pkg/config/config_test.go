package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 1000, cfg.Stream.LineCapacity)
	require.Equal(t, 131072, cfg.Stream.ByteCapacity)
	require.Equal(t, 15*time.Second, cfg.StopTimeout())
}

func TestLoadOverridesOnlyNamedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dockhand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  json: true
stop:
  timeoutSeconds: 30
remote:
  url: http://peer:4000
  username: ops
  password: hunter2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Log.JSON)
	require.Equal(t, 30*time.Second, cfg.StopTimeout())
	require.Equal(t, "http://peer:4000", cfg.Remote.URL)
	require.Equal(t, "ops", cfg.Remote.Username)

	// untouched sections keep their defaults.
	require.Equal(t, 1000, cfg.Stream.LineCapacity)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestStopTimeoutDefaultsWhenUnset(t *testing.T) {
	cfg := Config{}
	require.Equal(t, 15*time.Second, cfg.StopTimeout())
}
