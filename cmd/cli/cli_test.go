package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlab-io/scanlab/internal/config"
	"github.com/scanlab-io/scanlab/internal/model"
)

func TestParseScanType(t *testing.T) {
	tests := []struct {
		input   string
		want    model.ScanType
		wantErr bool
	}{
		{"", model.ScanTypeQuick, false},
		{"quick", model.ScanTypeQuick, false},
		{"deep", model.ScanTypeDeep, false},
		{"discovery", model.ScanTypeDiscovery, false},
		{"custom", model.ScanTypeCustom, false},
		{"turbo", "", true},
	}

	for _, tt := range tests {
		got, err := parseScanType(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "scan", "validate", "interfaces"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	assert.Contains(t, rootCmd.Version, "1.2.3")
	assert.Contains(t, rootCmd.Version, "abc123")
}

func TestRunValidate(t *testing.T) {
	cfg = config.Default()

	require.NoError(t, runValidate(nil, []string{"192.168.1.0/24"}))
	assert.Error(t, runValidate(nil, []string{"8.8.8.8"}))
	assert.Error(t, runValidate(nil, []string{"not-an-ip"}))
}
