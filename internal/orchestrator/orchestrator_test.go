package orchestrator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/model"
	"github.com/scanlab-io/scanlab/internal/scanner"
	"github.com/scanlab-io/scanlab/internal/store"
	"github.com/scanlab-io/scanlab/internal/workers"
)

func newTestOrchestrator(t *testing.T, cfg Config) (*Orchestrator, store.Store) {
	t.Helper()
	return newTestOrchestratorWithReal(t, cfg, nil)
}

func newTestOrchestratorWithReal(t *testing.T, cfg Config, real scanner.Engine) (*Orchestrator, store.Store) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "scanlab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	poolCfg := workers.DefaultConfig()
	poolCfg.Size = 2
	pool := workers.New(poolCfg)
	pool.Start()
	t.Cleanup(func() { _ = pool.Shutdown() })

	sim := scanner.NewSimulator()
	return New(cfg, sim, real, st, pool), st
}

func validRequest() ScanRequest {
	return ScanRequest{
		Target:      "192.168.50.0/24",
		ScanType:    model.ScanTypeQuick,
		UserConsent: true,
	}
}

// waitTerminal polls until the scan reaches a terminal status.
func waitTerminal(t *testing.T, o *Orchestrator, scanID string) *model.ScanResult {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		result, err := o.GetScanStatus(context.Background(), scanID)
		require.NoError(t, err)
		if result.Status.Terminal() {
			return result
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("scan did not finish in time")
	return nil
}

func TestStartScanCompletes(t *testing.T) {
	o, st := newTestOrchestrator(t, Config{Cooldown: 100 * time.Millisecond})

	result, err := o.StartScan(context.Background(), validRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.ScanID)
	assert.Equal(t, model.ScanStatusPending, result.Status)
	assert.Equal(t, "192.168.50.0/24", result.TargetRange)

	final := waitTerminal(t, o, result.ScanID)
	assert.Equal(t, model.ScanStatusCompleted, final.Status)
	assert.GreaterOrEqual(t, len(final.Devices), 3)
	assert.LessOrEqual(t, len(final.Devices), 15)
	assert.Equal(t, float64(100), final.Progress)

	// The gateway is generated first; it only lacks the router type
	// when the draw marked it down.
	if first := final.Devices[0]; first.IsUp {
		assert.Equal(t, model.DeviceRouter, first.DeviceType)
	}

	// GetScan returns the same full record from durable storage.
	full, err := o.GetScan(context.Background(), result.ScanID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusCompleted, full.Status)
	assert.Len(t, full.Devices, len(final.Devices))

	// Terminal record must be persisted, not just cached.
	stored, err := st.GetScan(context.Background(), result.ScanID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusCompleted, stored.Status)
	assert.Len(t, stored.Devices, len(final.Devices))
}

func TestStartScanRequiresConsent(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{})

	req := validRequest()
	req.UserConsent = false

	result, err := o.StartScan(context.Background(), req)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConsentRequired, errors.GetCode(err))

	// Nothing may be recorded for a refused scan.
	count, err := o.CountScans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStartScanRejectsPublicTarget(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{})

	req := validRequest()
	req.Target = "8.8.8.8"

	_, err := o.StartScan(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotPrivate, errors.GetCode(err))
}

func TestStartScanRejectsOversizedNetwork(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{MaxNetworkSize: 256})

	req := validRequest()
	req.Target = "192.168.0.0/16"

	_, err := o.StartScan(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.CodeTooLarge, errors.GetCode(err))
}

func TestStartScanRejectsUnknownType(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{})

	req := validRequest()
	req.ScanType = model.ScanType("turbo")

	_, err := o.StartScan(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidFormat, errors.GetCode(err))
}

func TestStartScanRateLimits(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{Cooldown: time.Hour})

	first, err := o.StartScan(context.Background(), validRequest())
	require.NoError(t, err)

	// A second scan submitted immediately hits either the in-progress
	// gate or, once the first finishes, the cooldown gate.
	_, err = o.StartScan(context.Background(), validRequest())
	require.Error(t, err)
	code := errors.GetCode(err)
	assert.Contains(t, []errors.ErrorCode{errors.CodeScanInProgress, errors.CodeCooldownActive}, code)
	assert.True(t, errors.IsRateLimit(err))

	final := waitTerminal(t, o, first.ScanID)
	assert.Equal(t, model.ScanStatusCompleted, final.Status)

	// Cooldown stamped after completion.
	_, err = o.StartScan(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, errors.CodeCooldownActive, errors.GetCode(err))
	assert.Greater(t, o.CooldownRemaining(), time.Duration(0))
}

func TestStartScanAfterCooldown(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{Cooldown: 50 * time.Millisecond})

	first, err := o.StartScan(context.Background(), validRequest())
	require.NoError(t, err)
	waitTerminal(t, o, first.ScanID)

	time.Sleep(60 * time.Millisecond)

	second, err := o.StartScan(context.Background(), validRequest())
	require.NoError(t, err)
	waitTerminal(t, o, second.ScanID)
}

func TestLiveModeDisabled(t *testing.T) {
	o, st := newTestOrchestrator(t, Config{})

	require.NoError(t, st.SavePreference(context.Background(), store.PrefNetworkMode, store.ModeLive))

	_, err := o.StartScan(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, errors.CodeScanningDisabled, errors.GetCode(err))
}

func TestLiveModeRequiresConfirmation(t *testing.T) {
	cfg := Config{Cooldown: time.Millisecond, EnableRealScanning: true}
	o, st := newTestOrchestratorWithReal(t, cfg, scanner.NewSimulator())
	ctx := context.Background()

	require.NoError(t, o.SetNetworkMode(ctx, store.ModeLive))

	confirmed, err := o.LiveScanConfirmed(ctx)
	require.NoError(t, err)
	assert.False(t, confirmed)

	// Without the stored acknowledgement a live scan is refused.
	_, err = o.StartScan(ctx, validRequest())
	require.Error(t, err)
	assert.Equal(t, errors.CodeConsentRequired, errors.GetCode(err))

	require.NoError(t, o.SetLiveScanConfirm(ctx, true))

	confirmed, err = o.LiveScanConfirmed(ctx)
	require.NoError(t, err)
	assert.True(t, confirmed)

	value, ok, err := st.GetPreference(ctx, store.PrefLiveScanConfirm)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", value)

	result, err := o.StartScan(ctx, validRequest())
	require.NoError(t, err)
	waitTerminal(t, o, result.ScanID)

	// Revoking the acknowledgement blocks live scans again.
	require.NoError(t, o.SetLiveScanConfirm(ctx, false))
	time.Sleep(5 * time.Millisecond)

	_, err = o.StartScan(ctx, validRequest())
	require.Error(t, err)
	assert.Equal(t, errors.CodeConsentRequired, errors.GetCode(err))
}

func TestNetworkModeDefaultsToTraining(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{})

	mode, err := o.NetworkMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.ModeTraining, mode)
}

func TestSetNetworkMode(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{})

	err := o.SetNetworkMode(context.Background(), "chaos")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidFormat, errors.GetCode(err))

	// Live mode requires real scanning.
	err = o.SetNetworkMode(context.Background(), store.ModeLive)
	require.Error(t, err)
	assert.Equal(t, errors.CodeScanningDisabled, errors.GetCode(err))

	require.NoError(t, o.SetNetworkMode(context.Background(), store.ModeTraining))
	mode, err := o.NetworkMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.ModeTraining, mode)
}

func TestGetScanStatusUnknown(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{})

	_, err := o.GetScanStatus(context.Background(), "no-such-scan")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestGetScanHistory(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{Cooldown: time.Millisecond})

	first, err := o.StartScan(context.Background(), validRequest())
	require.NoError(t, err)
	waitTerminal(t, o, first.ScanID)

	history, err := o.GetScanHistory(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ScanID, history[0].ScanID)
}

func TestDeleteScan(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{Cooldown: time.Millisecond})

	first, err := o.StartScan(context.Background(), validRequest())
	require.NoError(t, err)
	waitTerminal(t, o, first.ScanID)

	deleted, err := o.DeleteScan(context.Background(), first.ScanID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = o.DeleteScan(context.Background(), first.ScanID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCancelUnknownScan(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{})
	assert.False(t, o.CancelScan(context.Background(), "missing"))
}

func TestValidateTargetDescribes(t *testing.T) {
	o, _ := newTestOrchestrator(t, Config{})

	info, err := o.ValidateTarget("192.168.1.0/24")
	require.NoError(t, err)
	assert.True(t, info.IsPrivate)
	assert.Equal(t, 254, info.NumHosts)
	assert.Equal(t, "network", info.Type)
}
