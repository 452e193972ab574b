package scanner

import (
	"context"
	goerrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ullaakut/nmap/v3"
	"github.com/google/uuid"

	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/fingerprint"
	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/model"
)

const (
	// DefaultScanTimeout bounds a single nmap invocation.
	DefaultScanTimeout = 300 * time.Second

	// DefaultPortRange is scanned by quick and custom scans when no
	// explicit range is given. DeepPortRange covers everything.
	DefaultPortRange = "1-1024"
	DeepPortRange    = "1-65535"
)

// NmapConfig holds the tunables of the real scan engine.
type NmapConfig struct {
	Timeout          time.Duration
	DefaultPortRange string
	DeepPortRange    string
}

func (c *NmapConfig) withDefaults() NmapConfig {
	out := *c
	if out.Timeout <= 0 {
		out.Timeout = DefaultScanTimeout
	}
	if out.DefaultPortRange == "" {
		out.DefaultPortRange = DefaultPortRange
	}
	if out.DeepPortRange == "" {
		out.DeepPortRange = DeepPortRange
	}
	return out
}

// activeScan tracks one in-flight or finished scan. The cancel func is
// non-nil only while the scan runs.
type activeScan struct {
	result *model.ScanResult
	cancel context.CancelFunc
}

// NmapEngine performs real network scans by driving the nmap binary.
// Discovered devices are fingerprinted and, when nmap reports no
// hostname, filled in via reverse DNS.
type NmapEngine struct {
	cfg           NmapConfig
	fingerprinter *fingerprint.Fingerprinter
	resolver      *ReverseResolver

	mu    sync.Mutex
	scans map[string]*activeScan
}

// NewNmapEngine creates a real scan engine. The resolver may be nil to
// disable reverse-DNS hostname resolution.
func NewNmapEngine(cfg NmapConfig, fp *fingerprint.Fingerprinter, resolver *ReverseResolver) *NmapEngine {
	if fp == nil {
		fp = fingerprint.New()
	}
	return &NmapEngine{
		cfg:           cfg.withDefaults(),
		fingerprinter: fp,
		resolver:      resolver,
		scans:         make(map[string]*activeScan),
	}
}

// buildScanOptions maps a scan type onto nmap options. Quick scans use
// aggressive timing over the common ports, deep scans slow down and
// cover the full range, discovery is ping-only.
func (e *NmapEngine) buildScanOptions(target string, scanType model.ScanType, portRange string) []nmap.Option {
	options := []nmap.Option{
		nmap.WithTargets(target),
	}

	switch scanType {
	case model.ScanTypeQuick:
		if portRange == "" {
			portRange = e.cfg.DefaultPortRange
		}
		options = append(options,
			nmap.WithPorts(portRange),
			nmap.WithServiceInfo(),
			nmap.WithTimingTemplate(nmap.TimingAggressive),
		)
	case model.ScanTypeDeep:
		if portRange == "" {
			portRange = e.cfg.DeepPortRange
		}
		options = append(options,
			nmap.WithPorts(portRange),
			nmap.WithServiceInfo(),
			nmap.WithTimingTemplate(nmap.TimingNormal),
		)
	case model.ScanTypeDiscovery:
		options = append(options,
			nmap.WithPingScan(),
			nmap.WithTimingTemplate(nmap.TimingAggressive),
		)
	case model.ScanTypeCustom:
		if portRange == "" {
			portRange = e.cfg.DefaultPortRange
		}
		options = append(options,
			nmap.WithPorts(portRange),
			nmap.WithServiceInfo(),
			nmap.WithTimingTemplate(nmap.TimingAggressive),
		)
	}

	return options
}

// ScanNetwork implements Engine. The returned result is always in a
// terminal status; on failure the error carries the reason and the
// result mirrors it so callers can persist the failed record.
func (e *NmapEngine) ScanNetwork(ctx context.Context, target string, scanType model.ScanType, portRange, scanID string) (*model.ScanResult, error) {
	if scanID == "" {
		scanID = uuid.New().String()
	}

	result := &model.ScanResult{
		ScanID:      scanID,
		TargetRange: target,
		ScanType:    scanType,
		Status:      model.ScanStatusPending,
	}

	scanCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	e.mu.Lock()
	e.scans[scanID] = &activeScan{result: result, cancel: cancel}
	e.mu.Unlock()

	// The orchestrator owns terminal records; keeping finished entries
	// here would grow the map for the life of the process.
	defer e.forget(scanID)

	logging.Audit("Network scan initiated",
		"scan_id", scanID,
		"target", target,
		"scan_type", string(scanType))

	startedAt := time.Now()
	e.setStatus(result, model.ScanStatusRunning)
	result.StartedAt = &startedAt

	sc, err := nmap.NewScanner(scanCtx, e.buildScanOptions(target, scanType, portRange)...)
	if err != nil {
		return e.fail(result, errors.WrapScanErrorWithTarget(
			errors.CodeScanTool, "failed to create nmap scanner", target, err))
	}

	run, warnings, err := sc.Run()
	if err != nil {
		switch {
		case goerrors.Is(scanCtx.Err(), context.DeadlineExceeded),
			strings.Contains(err.Error(), "timed out"):
			return e.fail(result, errors.ErrScanTimeout(target, e.cfg.Timeout))
		case goerrors.Is(scanCtx.Err(), context.Canceled):
			completedAt := time.Now()
			e.setStatus(result, model.ScanStatusCancelled)
			result.CompletedAt = &completedAt
			logging.Audit("Scan cancelled", "scan_id", scanID)
			return result, errors.NewScanErrorWithTarget(errors.CodeCanceled, "scan cancelled", target)
		default:
			return e.fail(result, errors.WrapScanErrorWithTarget(
				errors.CodeScanFailed, "scanner execution failed", target, err))
		}
	}
	if warnings != nil && len(*warnings) > 0 {
		logging.Warn("Scan completed with warnings", "scan_id", scanID, "warnings", *warnings)
	}

	e.parseRun(scanCtx, run, result)

	completedAt := time.Now()
	e.setStatus(result, model.ScanStatusCompleted)
	result.CompletedAt = &completedAt
	result.Progress = 100.0

	logging.Audit("Network scan completed",
		"scan_id", scanID,
		"devices_found", len(result.Devices),
		"duration", completedAt.Sub(startedAt).String())

	return result, nil
}

// forget drops the tracking entry once the scan leaves the engine.
func (e *NmapEngine) forget(scanID string) {
	e.mu.Lock()
	delete(e.scans, scanID)
	e.mu.Unlock()
}

// fail stamps the result as failed with the error's message.
func (e *NmapEngine) fail(result *model.ScanResult, scanErr *errors.ScanError) (*model.ScanResult, error) {
	completedAt := time.Now()
	e.mu.Lock()
	result.Status = model.ScanStatusFailed
	result.ErrorMessage = scanErr.Message
	result.CompletedAt = &completedAt
	e.mu.Unlock()

	logging.ErrorScan("Scan failed", result.TargetRange, scanErr, "scan_id", result.ScanID)
	return result, scanErr
}

func (e *NmapEngine) setStatus(result *model.ScanResult, status model.ScanStatus) {
	e.mu.Lock()
	result.Status = status
	e.mu.Unlock()
}

// parseRun converts nmap output into devices, keeping only hosts that
// are up, and runs fingerprinting over each.
func (e *NmapEngine) parseRun(ctx context.Context, run *nmap.Run, result *model.ScanResult) {
	result.TotalHosts = run.Stats.Hosts.Total

	for i := range run.Hosts {
		device, ok := e.parseHost(&run.Hosts[i])
		result.ScannedHosts++
		if !ok {
			continue
		}

		e.fingerprinter.Classify(device)
		if device.Hostname == "" && e.resolver != nil {
			if hostname, err := e.resolver.LookupAddr(ctx, device.IP); err == nil {
				device.Hostname = hostname
			}
		}

		result.Devices = append(result.Devices, *device)

		e.mu.Lock()
		if result.TotalHosts > 0 {
			result.Progress = float64(result.ScannedHosts) / float64(result.TotalHosts) * 100
		}
		e.mu.Unlock()
	}
}

// parseHost converts one nmap host entry. Hosts that are down or have
// no address are skipped.
func (e *NmapEngine) parseHost(h *nmap.Host) (*model.Device, bool) {
	if len(h.Addresses) == 0 || h.Status.State != "up" {
		return nil, false
	}

	device := &model.Device{
		LastSeen: time.Now(),
		IsUp:     true,
	}

	for _, addr := range h.Addresses {
		switch addr.AddrType {
		case "ipv4":
			device.IP = addr.Addr
		case "mac":
			device.MAC = addr.Addr
			if addr.Vendor != "" {
				device.Vendor = addr.Vendor
			}
		}
	}
	if device.IP == "" {
		device.IP = h.Addresses[0].Addr
	}

	if len(h.Hostnames) > 0 {
		device.Hostname = h.Hostnames[0].Name
	}

	if len(h.OS.Matches) > 0 {
		best := h.OS.Matches[0]
		device.OS = best.Name
		device.OSAccuracy = best.Accuracy
	}

	for i := range h.Ports {
		p := &h.Ports[i]
		if p.State.State != "open" {
			continue
		}
		device.Ports = append(device.Ports, model.PortInfo{
			Port:     int(p.ID),
			Protocol: p.Protocol,
			State:    p.State.State,
			Service:  p.Service.Name,
			Version:  p.Service.Version,
			Banner:   p.Service.Product,
		})
	}
	sort.Slice(device.Ports, func(i, j int) bool {
		return device.Ports[i].Port < device.Ports[j].Port
	})

	return device, true
}

// DiscoverHosts implements Engine using a ping-only scan.
func (e *NmapEngine) DiscoverHosts(ctx context.Context, target string) ([]string, error) {
	result, err := e.ScanNetwork(ctx, target, model.ScanTypeDiscovery, "", "")
	if err != nil {
		return nil, err
	}

	ips := make([]string, 0, len(result.Devices))
	for i := range result.Devices {
		if result.Devices[i].IsUp {
			ips = append(ips, result.Devices[i].IP)
		}
	}
	return ips, nil
}

// Progress implements Engine.
func (e *NmapEngine) Progress(scanID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok := e.scans[scanID]; ok {
		return entry.result.Progress
	}
	return 100.0
}

// Cancel implements Engine. Cancelling the scan context terminates the
// underlying nmap process; the scan goroutine observes the cancellation
// and marks the record cancelled.
func (e *NmapEngine) Cancel(scanID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.scans[scanID]
	if !ok {
		logging.Warn("Cannot cancel scan: not found", "scan_id", scanID)
		return false
	}
	if entry.cancel == nil || entry.result.Status != model.ScanStatusRunning {
		logging.Warn("Cannot cancel scan: not running", "scan_id", scanID)
		return false
	}

	entry.cancel()
	return true
}

// Result returns the engine's record of an in-flight scan, or nil once
// the scan has finished and the entry is released.
func (e *NmapEngine) Result(scanID string) *model.ScanResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if entry, ok := e.scans[scanID]; ok {
		return entry.result
	}
	return nil
}

// String describes the engine configuration for logs.
func (e *NmapEngine) String() string {
	return fmt.Sprintf("nmap engine (timeout %s, ports %s)", e.cfg.Timeout, e.cfg.DefaultPortRange)
}
