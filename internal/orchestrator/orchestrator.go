// Package orchestrator coordinates scan operations: it enforces
// consent and rate limits, validates targets, selects the scan engine
// for the active network mode, runs scans on the worker pool and
// persists every lifecycle transition.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/metrics"
	"github.com/scanlab-io/scanlab/internal/model"
	"github.com/scanlab-io/scanlab/internal/netinfo"
	"github.com/scanlab-io/scanlab/internal/netval"
	"github.com/scanlab-io/scanlab/internal/scanner"
	"github.com/scanlab-io/scanlab/internal/store"
	"github.com/scanlab-io/scanlab/internal/workers"
)

// DefaultCooldown is the minimum pause between scans.
const DefaultCooldown = 60 * time.Second

// Config holds orchestrator tunables.
type Config struct {
	// Cooldown is the minimum time between consecutive scans.
	Cooldown time.Duration
	// MaxNetworkSize caps the number of addresses in a scan target.
	MaxNetworkSize int
	// EnableRealScanning permits live-mode scans. When false, live
	// mode requests are rejected regardless of the mode preference.
	EnableRealScanning bool
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Cooldown <= 0 {
		out.Cooldown = DefaultCooldown
	}
	return out
}

// ScanRequest describes one scan submission.
type ScanRequest struct {
	Target      string
	ScanType    model.ScanType
	PortRange   string
	UserConsent bool
}

// Orchestrator is the single entry point for scan operations. One
// instance serves the whole process so rate limits and the current-scan
// marker are shared.
type Orchestrator struct {
	cfg       Config
	validator *netval.Validator
	simulated scanner.Engine
	real      scanner.Engine
	store     store.Store
	pool      *workers.Pool

	mu           sync.Mutex
	history      map[string]*model.ScanResult
	engines      map[string]scanner.Engine
	currentScan  string
	lastScanTime time.Time
}

// New creates an orchestrator. The real engine may be nil when the
// deployment never performs live scans.
func New(cfg Config, simulated, real scanner.Engine, st store.Store, pool *workers.Pool) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg.withDefaults(),
		validator: netval.New(cfg.MaxNetworkSize),
		simulated: simulated,
		real:      real,
		store:     st,
		pool:      pool,
		history:   make(map[string]*model.ScanResult),
		engines:   make(map[string]scanner.Engine),
	}
	logging.Info("Scan orchestrator initialized",
		"cooldown", o.cfg.Cooldown.String(),
		"real_scanning_enabled", cfg.EnableRealScanning)
	return o
}

// StartScan validates and submits a scan. It returns immediately with
// the scan record in PENDING status; the scan itself runs on the worker
// pool. Gate order: consent, target validation, rate limits, mode.
func (o *Orchestrator) StartScan(ctx context.Context, req ScanRequest) (*model.ScanResult, error) {
	if !req.UserConsent {
		logging.Warn("Scan attempted without user consent", "target", req.Target)
		logging.Audit("Scan blocked - no consent", "target", req.Target)
		return nil, errors.ErrConsentRequired()
	}

	if !model.ValidScanType(req.ScanType) {
		return nil, errors.NewScanErrorWithTarget(errors.CodeInvalidFormat,
			fmt.Sprintf("Unknown scan type: %s", req.ScanType), req.Target)
	}

	if _, err := o.validator.Validate(req.Target); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.checkRateLimitsLocked(); err != nil {
		return nil, err
	}

	engine, err := o.selectEngine(ctx)
	if err != nil {
		return nil, err
	}

	scanID := uuid.New().String()
	result := &model.ScanResult{
		ScanID:      scanID,
		TargetRange: req.Target,
		ScanType:    req.ScanType,
		PortRange:   req.PortRange,
		Status:      model.ScanStatusPending,
	}

	if err := o.store.SaveScan(ctx, result); err != nil {
		return nil, err
	}

	o.history[scanID] = result
	o.engines[scanID] = engine
	o.currentScan = scanID

	job := workers.NewScanJob(scanID, func(jobCtx context.Context) error {
		return o.runScan(jobCtx, engine, scanID, req)
	})
	if err := o.pool.Submit(job); err != nil {
		delete(o.history, scanID)
		delete(o.engines, scanID)
		o.currentScan = ""
		if _, delErr := o.store.DeleteScan(ctx, scanID); delErr != nil {
			logging.ErrorStore("Failed to remove unqueued scan", delErr, "scan_id", scanID)
		}
		return nil, errors.WrapScanErrorWithTarget(errors.CodeScanFailed,
			"failed to queue scan", req.Target, err)
	}

	logging.Audit("Scan started with consent",
		"scan_id", scanID,
		"target", req.Target,
		"scan_type", string(req.ScanType))

	return result.Clone(), nil
}

// checkRateLimitsLocked enforces single-flight and the cooldown window.
func (o *Orchestrator) checkRateLimitsLocked() error {
	if o.currentScan != "" {
		if current, ok := o.history[o.currentScan]; ok && !current.Status.Terminal() {
			return errors.ErrScanInProgress()
		}
	}

	if !o.lastScanTime.IsZero() {
		elapsed := time.Since(o.lastScanTime)
		if elapsed < o.cfg.Cooldown {
			remaining := o.cfg.Cooldown - elapsed
			logging.Warn("Scan cooldown active", "remaining", remaining.String())
			return errors.ErrCooldownActive(remaining)
		}
	}

	return nil
}

// selectEngine picks the engine for the active network mode. The mode
// preference is re-read on every scan so a settings change takes effect
// immediately.
func (o *Orchestrator) selectEngine(ctx context.Context) (scanner.Engine, error) {
	mode, ok, err := o.store.GetPreference(ctx, store.PrefNetworkMode)
	if err != nil {
		return nil, err
	}
	if !ok {
		mode = store.ModeTraining
	}

	if mode == store.ModeLive {
		if !o.cfg.EnableRealScanning || o.real == nil {
			logging.Warn("Live scan requested but real scanning is disabled")
			return nil, errors.ErrScanningDisabled()
		}
		confirmed, err := o.LiveScanConfirmed(ctx)
		if err != nil {
			return nil, err
		}
		if !confirmed {
			logging.Warn("Live scan requested without confirmation")
			logging.Audit("Live scan blocked - not confirmed")
			return nil, errors.NewScanError(errors.CodeConsentRequired,
				"Live scanning has not been confirmed. Acknowledge the live scan "+
					"confirmation in settings before scanning real networks.")
		}
		return o.real, nil
	}

	return o.simulated, nil
}

// runScan executes the scan on a pool worker and persists every status
// transition. On exit it clears the current-scan marker and stamps the
// cooldown clock regardless of outcome.
func (o *Orchestrator) runScan(ctx context.Context, engine scanner.Engine, scanID string, req ScanRequest) error {
	startedAt := time.Now()

	o.mu.Lock()
	if record, ok := o.history[scanID]; ok {
		record.Status = model.ScanStatusRunning
		record.StartedAt = &startedAt
	}
	o.mu.Unlock()

	if err := o.store.SaveScan(ctx, o.snapshot(scanID)); err != nil {
		logging.ErrorStore("Failed to persist running scan", err, "scan_id", scanID)
	}
	metrics.Global().SetActiveScans(1)

	result, scanErr := engine.ScanNetwork(ctx, req.Target, req.ScanType, req.PortRange, scanID)

	completedAt := time.Now()
	if result == nil {
		result = &model.ScanResult{
			ScanID:      scanID,
			TargetRange: req.Target,
			ScanType:    req.ScanType,
			Status:      model.ScanStatusFailed,
			StartedAt:   &startedAt,
			CompletedAt: &completedAt,
		}
		if scanErr != nil {
			result.ErrorMessage = scanErr.Error()
		}
	}
	result.PortRange = req.PortRange

	o.mu.Lock()
	o.history[scanID] = result
	delete(o.engines, scanID)
	if o.currentScan == scanID {
		o.currentScan = ""
	}
	o.lastScanTime = time.Now()
	o.mu.Unlock()

	if err := o.store.SaveScan(ctx, result); err != nil {
		logging.ErrorStore("Failed to persist scan result", err, "scan_id", scanID)
	}

	o.recordScanMetrics(result)
	metrics.Global().SetActiveScans(0)

	if scanErr != nil {
		logging.ErrorScan("Scan finished with error", req.Target, scanErr, "scan_id", scanID)
		return scanErr
	}

	logging.InfoScan("Scan finished", req.Target,
		"scan_id", scanID,
		"status", string(result.Status),
		"devices", len(result.Devices))
	return nil
}

func (o *Orchestrator) recordScanMetrics(result *model.ScanResult) {
	m := metrics.Global()
	scanType := string(result.ScanType)

	m.IncrementScansTotal(scanType, string(result.Status))
	if result.StartedAt != nil && result.CompletedAt != nil {
		m.RecordScanDuration(scanType, result.CompletedAt.Sub(*result.StartedAt))
	}
	if result.Status == model.ScanStatusFailed {
		m.IncrementScanErrors(scanType, "execution")
	}

	byType := make(map[string]int)
	for i := range result.Devices {
		deviceType := string(result.Devices[i].DeviceType)
		if deviceType == "" {
			deviceType = string(model.DeviceUnknown)
		}
		byType[deviceType]++
	}
	for deviceType, count := range byType {
		m.IncrementDevicesDiscovered(scanType, deviceType, count)
	}
}

// snapshot returns a clone of the cached record, or nil.
func (o *Orchestrator) snapshot(scanID string) *model.ScanResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	if record, ok := o.history[scanID]; ok {
		return record.Clone()
	}
	return nil
}

// GetScanStatus returns the current record of a scan, preferring the
// in-process cache over the store.
func (o *Orchestrator) GetScanStatus(ctx context.Context, scanID string) (*model.ScanResult, error) {
	if record := o.snapshot(scanID); record != nil {
		return record, nil
	}
	return o.store.GetScan(ctx, scanID)
}

// GetScan returns the full durable record of a scan, falling back to
// the in-process cache for scans not yet persisted.
func (o *Orchestrator) GetScan(ctx context.Context, scanID string) (*model.ScanResult, error) {
	result, err := o.store.GetScan(ctx, scanID)
	if err == nil {
		return result, nil
	}
	if record := o.snapshot(scanID); record != nil {
		return record, nil
	}
	return nil, err
}

// CancelScan stops a running scan. It reports whether anything was
// cancelled; the terminal CANCELLED record is persisted by the scan
// goroutine when the engine unwinds.
func (o *Orchestrator) CancelScan(_ context.Context, scanID string) bool {
	o.mu.Lock()
	engine, ok := o.engines[scanID]
	o.mu.Unlock()
	if !ok {
		return false
	}

	cancelled := engine.Cancel(scanID)
	if cancelled {
		o.mu.Lock()
		if o.currentScan == scanID {
			o.currentScan = ""
		}
		o.mu.Unlock()
		logging.Audit("Scan cancelled", "scan_id", scanID)
	}
	return cancelled
}

// GetScanHistory returns persisted scans, most recent first.
func (o *Orchestrator) GetScanHistory(ctx context.Context, limit, offset int) ([]*model.ScanResult, error) {
	return o.store.ListScans(ctx, limit, offset)
}

// CountScans returns the total number of persisted scans.
func (o *Orchestrator) CountScans(ctx context.Context) (int, error) {
	return o.store.CountScans(ctx)
}

// DeleteScan removes a scan from the store and the in-process cache.
func (o *Orchestrator) DeleteScan(ctx context.Context, scanID string) (bool, error) {
	o.mu.Lock()
	if record, ok := o.history[scanID]; ok && !record.Status.Terminal() {
		o.mu.Unlock()
		return false, errors.NewScanError(errors.CodeScanInProgress,
			"Cannot delete a scan that is still running. Cancel it first.")
	}
	delete(o.history, scanID)
	o.mu.Unlock()

	return o.store.DeleteScan(ctx, scanID)
}

// ValidateTarget validates a target and describes the network without
// scanning it.
func (o *Orchestrator) ValidateTarget(target string) (*netval.Info, error) {
	return o.validator.Describe(target)
}

// ListInterfaces returns the machine's IPv4 network interfaces.
func (o *Orchestrator) ListInterfaces() ([]netinfo.Interface, error) {
	return netinfo.ListInterfaces()
}

// DetectLocalNetwork returns the primary local network CIDR, or "".
func (o *Orchestrator) DetectLocalNetwork() string {
	return netinfo.DetectLocalNetwork()
}

// NetworkMode returns the active network mode preference.
func (o *Orchestrator) NetworkMode(ctx context.Context) (string, error) {
	mode, ok, err := o.store.GetPreference(ctx, store.PrefNetworkMode)
	if err != nil {
		return "", err
	}
	if !ok {
		return store.ModeTraining, nil
	}
	return mode, nil
}

// SetNetworkMode updates the network mode preference. Switching to
// live mode requires real scanning to be enabled.
func (o *Orchestrator) SetNetworkMode(ctx context.Context, mode string) error {
	switch mode {
	case store.ModeTraining, store.ModeLive:
	default:
		return errors.NewScanError(errors.CodeInvalidFormat,
			fmt.Sprintf("Unknown network mode: %s. Valid modes are %q and %q.",
				mode, store.ModeTraining, store.ModeLive))
	}

	if mode == store.ModeLive && (!o.cfg.EnableRealScanning || o.real == nil) {
		return errors.ErrScanningDisabled()
	}

	if err := o.store.SavePreference(ctx, store.PrefNetworkMode, mode); err != nil {
		return err
	}
	logging.Audit("Network mode changed", "mode", mode)
	return nil
}

// LiveScanConfirmed reports whether the operator has acknowledged the
// live scanning confirmation. Unset means not confirmed.
func (o *Orchestrator) LiveScanConfirmed(ctx context.Context) (bool, error) {
	value, ok, err := o.store.GetPreference(ctx, store.PrefLiveScanConfirm)
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

// SetLiveScanConfirm records or revokes the live scanning
// acknowledgement. Live-mode scans are refused until it is set.
func (o *Orchestrator) SetLiveScanConfirm(ctx context.Context, confirmed bool) error {
	value := "false"
	if confirmed {
		value = "true"
	}
	if err := o.store.SavePreference(ctx, store.PrefLiveScanConfirm, value); err != nil {
		return err
	}
	logging.Audit("Live scan confirmation changed", "confirmed", confirmed)
	return nil
}

// CooldownRemaining reports how long until the next scan is allowed.
func (o *Orchestrator) CooldownRemaining() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastScanTime.IsZero() {
		return 0
	}
	remaining := o.cfg.Cooldown - time.Since(o.lastScanTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}
