package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 300*time.Second, cfg.Scanning.ScanTimeout)
	assert.Equal(t, 256, cfg.Scanning.MaxNetworkSize)
	assert.Equal(t, 60*time.Second, cfg.Scanning.Cooldown)
	assert.False(t, cfg.Scanning.EnableRealScanning)
	assert.Equal(t, "127.0.0.1:8080", cfg.GetAPIAddress())
	assert.Equal(t, 4, cfg.Workers.PoolSize)
	assert.False(t, cfg.AutoScan.Enabled)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scanning:
  cooldown: 120s
  max_network_size: 512
  enable_real_scanning: true
api:
  port: 9090
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 120*time.Second, cfg.Scanning.Cooldown)
	assert.Equal(t, 512, cfg.Scanning.MaxNetworkSize)
	assert.True(t, cfg.Scanning.EnableRealScanning)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset values keep their defaults.
	assert.Equal(t, 300*time.Second, cfg.Scanning.ScanTimeout)
	assert.Equal(t, "127.0.0.1", cfg.API.ListenAddr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SCANLAB_SCANNING_COOLDOWN", "90s")
	t.Setenv("SCANLAB_API_PORT", "9999")
	t.Setenv("SCANLAB_DATABASE_PATH", "/tmp/other.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Scanning.Cooldown)
	assert.Equal(t, 9999, cfg.API.Port)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
}

func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero scan timeout", func(c *Config) { c.Scanning.ScanTimeout = 0 }},
		{"zero network size", func(c *Config) { c.Scanning.MaxNetworkSize = 0 }},
		{"negative cooldown", func(c *Config) { c.Scanning.Cooldown = -time.Second }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"bad api port", func(c *Config) { c.API.Port = 70000 }},
		{"empty listen addr", func(c *Config) { c.API.ListenAddr = "" }},
		{"zero pool size", func(c *Config) { c.Workers.PoolSize = 0 }},
		{"autoscan without schedule", func(c *Config) { c.AutoScan.Enabled = true; c.AutoScan.Schedule = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.Scanning.Cooldown = 42 * time.Second
	cfg.API.Port = 8181
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, loaded.Scanning.Cooldown)
	assert.Equal(t, 8181, loaded.API.Port)
}

func TestConversionHelpers(t *testing.T) {
	cfg := Default()

	pool := cfg.WorkerPoolConfig()
	assert.Equal(t, cfg.Workers.PoolSize, pool.Size)
	assert.Equal(t, cfg.Workers.QueueSize, pool.QueueSize)

	nmapCfg := cfg.NmapConfig()
	assert.Equal(t, cfg.Scanning.ScanTimeout, nmapCfg.Timeout)
	assert.Equal(t, "1-1024", nmapCfg.DefaultPortRange)

	logCfg := cfg.LoggerConfig()
	assert.Equal(t, "info", string(logCfg.Level))
	assert.Equal(t, "text", string(logCfg.Format))
}
