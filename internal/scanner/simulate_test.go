package scanner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/model"
)

var _ Engine = (*Simulator)(nil)

// doneCtx returns an already-cancelled context so the simulator's UX
// pacing delay is skipped.
func doneCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func deviceKey(d *model.Device) string {
	var sb strings.Builder
	sb.WriteString(d.IP)
	sb.WriteString("|")
	sb.WriteString(d.MAC)
	sb.WriteString("|")
	sb.WriteString(string(d.DeviceType))
	for _, p := range d.Ports {
		sb.WriteString("|")
		sb.WriteString(p.Service)
	}
	return sb.String()
}

func TestSimulatorDeterminism(t *testing.T) {
	sim := NewSimulator()

	first, err := sim.ScanNetwork(doneCtx(), "192.168.1.0/24", model.ScanTypeQuick, "", "scan-a")
	require.NoError(t, err)
	second, err := sim.ScanNetwork(doneCtx(), "192.168.1.0/24", model.ScanTypeQuick, "", "scan-b")
	require.NoError(t, err)

	require.Equal(t, len(first.Devices), len(second.Devices))
	for i := range first.Devices {
		assert.Equal(t, deviceKey(&first.Devices[i]), deviceKey(&second.Devices[i]))
	}
	assert.Equal(t, first.ScannedHosts, second.ScannedHosts)
	assert.Equal(t, first.TotalHosts, second.TotalHosts)
}

func TestSimulatorDistinctTargets(t *testing.T) {
	sim := NewSimulator()

	a, err := sim.ScanNetwork(doneCtx(), "192.168.1.0/24", model.ScanTypeQuick, "", "")
	require.NoError(t, err)
	b, err := sim.ScanNetwork(doneCtx(), "192.168.2.0/24", model.ScanTypeQuick, "", "")
	require.NoError(t, err)

	aKeys := make([]string, 0, len(a.Devices))
	for i := range a.Devices {
		aKeys = append(aKeys, deviceKey(&a.Devices[i]))
	}
	bKeys := make([]string, 0, len(b.Devices))
	for i := range b.Devices {
		bKeys = append(bKeys, deviceKey(&b.Devices[i]))
	}
	assert.NotEqual(t, aKeys, bKeys)
}

func TestSimulatorHomeNetworkShape(t *testing.T) {
	sim := NewSimulator()

	result, err := sim.ScanNetwork(doneCtx(), "192.168.1.0/24", model.ScanTypeQuick, "", "scan-1")
	require.NoError(t, err)

	assert.Equal(t, model.ScanStatusCompleted, result.Status)
	assert.Equal(t, "scan-1", result.ScanID)
	assert.Equal(t, 100.0, result.Progress)
	assert.GreaterOrEqual(t, len(result.Devices), 3)
	assert.LessOrEqual(t, len(result.Devices), 15)
	assert.Equal(t, 254, result.TotalHosts)

	// The gateway is always generated first.
	router := result.Devices[0]
	if router.IsUp {
		assert.Equal(t, model.DeviceRouter, router.DeviceType)
	}

	for i := range result.Devices {
		d := &result.Devices[i]
		assert.True(t, strings.HasPrefix(d.IP, "192.168.1."), "ip %s outside target", d.IP)
		if d.IsUp {
			assert.NotEmpty(t, d.MAC)
			assert.NotEmpty(t, d.Hostname)
			assert.NotEmpty(t, d.Vendor)
			assert.NotEmpty(t, d.Ports)
		} else {
			assert.Empty(t, d.MAC)
			assert.Empty(t, d.Hostname)
			assert.Empty(t, d.Vendor)
			assert.Empty(t, d.Ports)
			assert.Equal(t, model.DeviceUnknown, d.DeviceType)
		}
	}
}

func TestSimulatorEnterpriseDeviceCount(t *testing.T) {
	sim := NewSimulator()

	result, err := sim.ScanNetwork(doneCtx(), "10.1.0.0/24", model.ScanTypeQuick, "", "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(result.Devices), 5)
	assert.LessOrEqual(t, len(result.Devices), 20)
}

func TestSimulatorSingleIPTarget(t *testing.T) {
	sim := NewSimulator()

	result, err := sim.ScanNetwork(doneCtx(), "192.168.1.10", model.ScanTypeQuick, "", "")
	require.NoError(t, err)
	require.Len(t, result.Devices, 1)
	assert.Equal(t, "192.168.1.10", result.Devices[0].IP)
}

func TestSimulatorInvalidTarget(t *testing.T) {
	sim := NewSimulator()

	_, err := sim.ScanNetwork(doneCtx(), "not-a-network", model.ScanTypeQuick, "", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidFormat, errors.GetCode(err))

	_, err = sim.DiscoverHosts(doneCtx(), "999.1.2.3/24")
	require.Error(t, err)
}

func TestSimulatorDiscoverHostsDeterminism(t *testing.T) {
	sim := NewSimulator()

	first, err := sim.DiscoverHosts(doneCtx(), "192.168.1.0/24")
	require.NoError(t, err)
	second, err := sim.DiscoverHosts(doneCtx(), "192.168.1.0/24")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestSimulatorProgressAndCancel(t *testing.T) {
	sim := NewSimulator()

	assert.Equal(t, 100.0, sim.Progress("anything"))
	assert.False(t, sim.Cancel("anything"))
}

func TestSimulatorGeneratedScanID(t *testing.T) {
	sim := NewSimulator()

	result, err := sim.ScanNetwork(doneCtx(), "172.16.5.0/28", model.ScanTypeQuick, "", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.ScanID, "sim-scan-"))
}
