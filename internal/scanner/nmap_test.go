package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/Ullaakut/nmap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlab-io/scanlab/internal/fingerprint"
	"github.com/scanlab-io/scanlab/internal/model"
)

var _ Engine = (*NmapEngine)(nil)

func TestNmapConfigDefaults(t *testing.T) {
	cfg := (&NmapConfig{}).withDefaults()
	assert.Equal(t, DefaultScanTimeout, cfg.Timeout)
	assert.Equal(t, DefaultPortRange, cfg.DefaultPortRange)
	assert.Equal(t, DeepPortRange, cfg.DeepPortRange)

	custom := (&NmapConfig{Timeout: 10 * time.Second, DefaultPortRange: "22,80"}).withDefaults()
	assert.Equal(t, 10*time.Second, custom.Timeout)
	assert.Equal(t, "22,80", custom.DefaultPortRange)
	assert.Equal(t, DeepPortRange, custom.DeepPortRange)
}

func TestBuildScanOptions(t *testing.T) {
	engine := NewNmapEngine(NmapConfig{}, fingerprint.New(), nil)

	tests := []struct {
		name      string
		scanType  model.ScanType
		portRange string
		wantOpts  int
	}{
		{"quick", model.ScanTypeQuick, "", 4},
		{"deep", model.ScanTypeDeep, "", 4},
		{"discovery", model.ScanTypeDiscovery, "", 3},
		{"custom with ports", model.ScanTypeCustom, "8000-9000", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := engine.buildScanOptions("192.168.1.0/24", tt.scanType, tt.portRange)
			assert.Len(t, options, tt.wantOpts)
		})
	}
}

func TestParseHost(t *testing.T) {
	engine := NewNmapEngine(NmapConfig{}, fingerprint.New(), nil)

	host := &nmap.Host{
		Status: nmap.Status{State: "up"},
		Addresses: []nmap.Address{
			{Addr: "192.168.1.5", AddrType: "ipv4"},
			{Addr: "B8:27:EB:AA:BB:CC", AddrType: "mac", Vendor: "Raspberry Pi Foundation"},
		},
		Hostnames: []nmap.Hostname{{Name: "pihole.lan"}},
		OS: nmap.OS{
			Matches: []nmap.OSMatch{{Name: "Linux 5.X", Accuracy: 96}},
		},
		Ports: []nmap.Port{
			{
				ID:       80,
				Protocol: "tcp",
				State:    nmap.State{State: "open"},
				Service:  nmap.Service{Name: "http", Product: "lighttpd", Version: "1.4"},
			},
			{
				ID:       22,
				Protocol: "tcp",
				State:    nmap.State{State: "open"},
				Service:  nmap.Service{Name: "ssh"},
			},
			{
				ID:       443,
				Protocol: "tcp",
				State:    nmap.State{State: "closed"},
			},
		},
	}

	device, ok := engine.parseHost(host)
	require.True(t, ok)

	assert.Equal(t, "192.168.1.5", device.IP)
	assert.Equal(t, "B8:27:EB:AA:BB:CC", device.MAC)
	assert.Equal(t, "Raspberry Pi Foundation", device.Vendor)
	assert.Equal(t, "pihole.lan", device.Hostname)
	assert.Equal(t, "Linux 5.X", device.OS)
	assert.Equal(t, 96, device.OSAccuracy)
	assert.True(t, device.IsUp)

	// Closed ports are dropped and the rest sorted by number.
	require.Len(t, device.Ports, 2)
	assert.Equal(t, 22, device.Ports[0].Port)
	assert.Equal(t, 80, device.Ports[1].Port)
	assert.Equal(t, "lighttpd", device.Ports[1].Banner)
}

func TestParseHostDown(t *testing.T) {
	engine := NewNmapEngine(NmapConfig{}, fingerprint.New(), nil)

	_, ok := engine.parseHost(&nmap.Host{
		Status:    nmap.Status{State: "down"},
		Addresses: []nmap.Address{{Addr: "192.168.1.9", AddrType: "ipv4"}},
	})
	assert.False(t, ok)

	_, ok = engine.parseHost(&nmap.Host{Status: nmap.Status{State: "up"}})
	assert.False(t, ok)
}

func TestNmapEngineUnknownScan(t *testing.T) {
	engine := NewNmapEngine(NmapConfig{}, fingerprint.New(), nil)

	assert.Equal(t, 100.0, engine.Progress("missing"))
	assert.False(t, engine.Cancel("missing"))
	assert.Nil(t, engine.Result("missing"))
}

func TestNmapEngineReleasesFinishedScans(t *testing.T) {
	engine := NewNmapEngine(NmapConfig{}, fingerprint.New(), nil)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.mu.Lock()
	engine.scans["scan-1"] = &activeScan{
		result: &model.ScanResult{ScanID: "scan-1", Status: model.ScanStatusRunning},
		cancel: cancel,
	}
	engine.mu.Unlock()

	require.NotNil(t, engine.Result("scan-1"))

	engine.forget("scan-1")

	assert.Nil(t, engine.Result("scan-1"))
	assert.False(t, engine.Cancel("scan-1"))
	assert.Equal(t, 100.0, engine.Progress("scan-1"))

	engine.mu.Lock()
	assert.Empty(t, engine.scans)
	engine.mu.Unlock()
}
