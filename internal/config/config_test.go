package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, TransportHertz, cfg.Transport)
	assert.Equal(t, "./public", cfg.StaticPath)
	assert.Equal(t, int64(65536), cfg.ReadLimit)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.Equal(t, 50, cfg.HistoryCap)
	assert.Equal(t, ":3000", cfg.Addr())
}

func TestLoadWithoutConfigEnvReadsNoFile(t *testing.T) {
	t.Setenv("CONFIG_ENV", "")
	t.Setenv("LOG_LEVEL", "")
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.dev.yaml"), []byte("log_level: debug\n"), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)

	t.Setenv("CONFIG_ENV", "dev")
	cfg, err = Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadPortFromEnv(t *testing.T) {
	t.Setenv("PORT", "8123")
	t.Setenv("TRANSPORT", "echo")

	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Port)
	assert.Equal(t, TransportEcho, cfg.Transport)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4100\nping_period: 20s\nhistory_cap: 10\n"), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 4100, cfg.Port)
	assert.Equal(t, 20*time.Second, cfg.PingPeriod)
	assert.Equal(t, 10, cfg.HistoryCap)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: grpc\n"), 0o644))

	_, err := Load(viper.New(), path)
	assert.ErrorContains(t, err, "unknown transport")
}

func TestValidate(t *testing.T) {
	ok := Config{Port: 3000, Transport: TransportEcho, HistoryCap: 50}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Port = 0
	assert.Error(t, bad.Validate())

	bad = ok
	bad.HistoryCap = 0
	assert.Error(t, bad.Validate())
}
