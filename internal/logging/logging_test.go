package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithDefaults(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger)
}

func TestNewWithJSONFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = FormatJSON
	cfg.Level = LevelDebug

	logger, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewWithFileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Output = filepath.Join(dir, "logs", "scanlab.log")

	logger, err := New(cfg)
	require.NoError(t, err)

	logger.Info("test message", "key", "value")
	assert.FileExists(t, cfg.Output)
}

func TestNewWithInvalidLevelFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "chatty"

	logger, err := New(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestWithHelpers(t *testing.T) {
	logger := NewDefault()

	assert.NotNil(t, logger.WithComponent("orchestrator"))
	assert.NotNil(t, logger.WithScanID("abc-123"))
	assert.NotNil(t, logger.WithFields("target", "192.168.1.0/24"))
}

func TestSetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	replacement := NewDefault()
	SetDefault(replacement)
	assert.Equal(t, replacement, Default())
}
