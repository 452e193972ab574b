// Package store persists scan history and user preferences. The only
// implementation is SQLite-backed; the interface exists so the
// orchestrator can be tested against lightweight fakes.
package store

import (
	"context"

	"github.com/scanlab-io/scanlab/internal/model"
)

// Well-known preference keys.
const (
	PrefNetworkMode     = "network_mode"
	PrefLiveScanConfirm = "live_scan_confirm"
	PrefAutoScanEnabled = "auto_scan_enabled"
	PrefAutoScanTarget  = "auto_scan_target"
)

// Network mode preference values. Training mode uses the simulated
// engine, live mode drives real nmap scans.
const (
	ModeTraining = "training"
	ModeLive     = "live"
)

// Store is the persistence surface used by the orchestrator and API.
type Store interface {
	// SaveScan inserts or fully replaces a scan record by ID.
	SaveScan(ctx context.Context, result *model.ScanResult) error

	// GetScan returns a scan by ID. Missing scans yield a not-found
	// error with code NOT_FOUND.
	GetScan(ctx context.Context, scanID string) (*model.ScanResult, error)

	// ListScans returns scans newest first. A non-positive limit
	// selects the default page size.
	ListScans(ctx context.Context, limit, offset int) ([]*model.ScanResult, error)

	// CountScans returns the total number of stored scans.
	CountScans(ctx context.Context) (int, error)

	// DeleteScan removes a scan record, reporting whether it existed.
	DeleteScan(ctx context.Context, scanID string) (bool, error)

	// SavePreference inserts or updates a key/value preference.
	SavePreference(ctx context.Context, key, value string) error

	// GetPreference returns a preference value. The bool reports
	// whether the key exists.
	GetPreference(ctx context.Context, key string) (string, bool, error)

	// AllPreferences returns every stored preference.
	AllPreferences(ctx context.Context) (map[string]string, error)

	// DeletePreference removes a preference, reporting whether it
	// existed.
	DeletePreference(ctx context.Context, key string) (bool, error)

	// Close releases the underlying resources.
	Close() error
}
