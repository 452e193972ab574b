// Package scanner provides the scan engines behind the orchestrator: a
// real engine driving nmap and a deterministic simulator for training
// mode. Both satisfy the same Engine interface so the orchestrator can
// select one per scan based on the active network mode.
package scanner

import (
	"context"

	"github.com/scanlab-io/scanlab/internal/model"
)

// Engine is the capability surface shared by the real and simulated
// scanners. Implementations must be safe for concurrent use.
type Engine interface {
	// ScanNetwork scans the target and returns a result in a terminal
	// status. A non-nil result is returned even when err is non-nil so
	// callers can persist the failed record.
	ScanNetwork(ctx context.Context, target string, scanType model.ScanType, portRange, scanID string) (*model.ScanResult, error)

	// DiscoverHosts checks which hosts respond to discovery probes
	// without port scanning them.
	DiscoverHosts(ctx context.Context, target string) ([]string, error)

	// Progress reports the completion percentage of a scan, 0-100.
	// Unknown scan IDs report 100 (assumed complete).
	Progress(scanID string) float64

	// Cancel stops a running scan. It reports whether anything was
	// actually cancelled.
	Cancel(scanID string) bool
}
