// Package scheduler runs automatic scans on a cron schedule. Whether a
// scheduled scan actually fires is decided at trigger time from the
// stored preferences, so the feature can be toggled at runtime without
// a restart.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/model"
	"github.com/scanlab-io/scanlab/internal/orchestrator"
	"github.com/scanlab-io/scanlab/internal/store"
)

// Config holds scheduler settings.
type Config struct {
	// Enabled turns the scheduler on. The auto-scan preference can
	// still disable individual triggers at runtime.
	Enabled bool
	// Schedule is a cron expression, e.g. "@hourly" or "0 3 * * *".
	Schedule string
	// Target is the network to scan. Empty means detect the local
	// network at trigger time.
	Target string
	// ScanType for scheduled scans.
	ScanType model.ScanType
}

// Scheduler triggers automatic scans through the orchestrator.
type Scheduler struct {
	cfg     Config
	orch    *orchestrator.Orchestrator
	store   store.Store
	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
}

// New creates a scheduler. Call Start to begin triggering scans.
func New(cfg Config, orch *orchestrator.Orchestrator, st store.Store) *Scheduler {
	if cfg.ScanType == "" {
		cfg.ScanType = model.ScanTypeQuick
	}
	return &Scheduler{
		cfg:   cfg,
		orch:  orch,
		store: st,
		cron:  cron.New(),
	}
}

// Start registers the cron entry and begins the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if !s.cfg.Enabled {
		logging.Info("Auto-scan scheduler disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, s.trigger)
	if err != nil {
		return fmt.Errorf("invalid auto-scan schedule %q: %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.running = true

	logging.Info("Auto-scan scheduler started",
		"schedule", s.cfg.Schedule,
		"scan_type", string(s.cfg.ScanType))
	return nil
}

// Stop stops the scheduler and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false

	logging.Info("Auto-scan scheduler stopped")
}

// Running reports whether the scheduler is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// trigger fires one scheduled scan. Rate-limit rejections are expected
// when a manual scan is in flight or the cooldown has not elapsed; the
// trigger simply skips and waits for the next tick.
func (s *Scheduler) trigger() {
	ctx := context.Background()

	if !s.autoScanEnabled(ctx) {
		logging.Debug("Auto-scan trigger skipped, disabled by preference")
		return
	}

	target := s.resolveTarget(ctx)
	if target == "" {
		logging.Warn("Auto-scan trigger skipped, no target configured and local network not detected")
		return
	}

	// Scheduled scans run on behalf of the operator who enabled the
	// feature; that toggle is the consent.
	result, err := s.orch.StartScan(ctx, orchestrator.ScanRequest{
		Target:      target,
		ScanType:    s.cfg.ScanType,
		UserConsent: true,
	})
	if err != nil {
		if errors.IsRateLimit(err) {
			logging.Debug("Auto-scan trigger skipped", "reason", err.Error())
			return
		}
		logging.Error("Auto-scan trigger failed", "target", target, "error", err)
		return
	}

	logging.InfoScan("Auto-scan triggered", target, "scan_id", result.ScanID)
}

// autoScanEnabled reads the runtime preference, falling back to the
// static configuration when unset.
func (s *Scheduler) autoScanEnabled(ctx context.Context) bool {
	value, ok, err := s.store.GetPreference(ctx, store.PrefAutoScanEnabled)
	if err != nil {
		logging.ErrorStore("Failed to read auto-scan preference", err)
		return false
	}
	if !ok {
		return s.cfg.Enabled
	}
	return value == "true"
}

// resolveTarget picks the scan target: runtime preference, then static
// configuration, then local network detection.
func (s *Scheduler) resolveTarget(ctx context.Context) string {
	if value, ok, err := s.store.GetPreference(ctx, store.PrefAutoScanTarget); err == nil && ok && value != "" {
		return value
	}
	if s.cfg.Target != "" {
		return s.cfg.Target
	}
	return s.orch.DetectLocalNetwork()
}
