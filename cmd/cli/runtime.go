package cli

import (
	"fmt"

	"github.com/scanlab-io/scanlab/internal/model"
	"github.com/scanlab-io/scanlab/internal/orchestrator"
	"github.com/scanlab-io/scanlab/internal/scanner"
	"github.com/scanlab-io/scanlab/internal/store"
	"github.com/scanlab-io/scanlab/internal/workers"
)

// runtime bundles the long-lived components shared by commands.
type runtime struct {
	store store.Store
	pool  *workers.Pool
	orch  *orchestrator.Orchestrator
}

// buildRuntime wires store, worker pool and orchestrator from the
// loaded configuration.
func buildRuntime() (*runtime, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool := workers.New(cfg.WorkerPoolConfig())
	pool.Start()

	var real scanner.Engine
	if cfg.Scanning.EnableRealScanning {
		real = scanner.NewNmapEngine(cfg.NmapConfig(), nil, nil)
	}

	orch := orchestrator.New(orchestrator.Config{
		Cooldown:           cfg.Scanning.Cooldown,
		MaxNetworkSize:     cfg.Scanning.MaxNetworkSize,
		EnableRealScanning: cfg.Scanning.EnableRealScanning,
	}, scanner.NewSimulator(), real, st, pool)

	return &runtime{store: st, pool: pool, orch: orch}, nil
}

// close shuts the runtime down in reverse construction order.
func (rt *runtime) close() {
	_ = rt.pool.Shutdown()
	_ = rt.store.Close()
}

// parseScanType maps the CLI flag to a scan type, defaulting to quick.
func parseScanType(value string) (model.ScanType, error) {
	if value == "" {
		return model.ScanTypeQuick, nil
	}
	st := model.ScanType(value)
	if !model.ValidScanType(st) {
		return "", fmt.Errorf("invalid scan type %q (valid: quick, deep, discovery, custom)", value)
	}
	return st, nil
}
