// Package model defines the shared data types for scan results, devices,
// and ports used throughout scanlab.
package model

import (
	"time"
)

// ScanType identifies the kind of scan to perform.
type ScanType string

const (
	// ScanTypeQuick scans common ports (1-1024) with fast timing.
	ScanTypeQuick ScanType = "quick"
	// ScanTypeDeep scans the full port range with slower timing.
	ScanTypeDeep ScanType = "deep"
	// ScanTypeDiscovery performs host discovery only, no port scan.
	ScanTypeDiscovery ScanType = "discovery"
	// ScanTypeCustom scans a caller-supplied port range.
	ScanTypeCustom ScanType = "custom"
)

// ValidScanType reports whether t is a known scan type.
func ValidScanType(t ScanType) bool {
	switch t {
	case ScanTypeQuick, ScanTypeDeep, ScanTypeDiscovery, ScanTypeCustom:
		return true
	}
	return false
}

// ScanStatus is the lifecycle state of a scan.
type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
	ScanStatusCancelled ScanStatus = "cancelled"
)

// Terminal reports whether the status has no outgoing transitions.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanStatusCompleted, ScanStatusFailed, ScanStatusCancelled:
		return true
	}
	return false
}

// DeviceType categorizes a discovered network device.
type DeviceType string

const (
	DeviceRouter      DeviceType = "router"
	DeviceSwitch      DeviceType = "switch"
	DeviceAccessPoint DeviceType = "access_point"
	DeviceFirewall    DeviceType = "firewall"
	DeviceServer      DeviceType = "server"
	DeviceWorkstation DeviceType = "workstation"
	DeviceLaptop      DeviceType = "laptop"
	DevicePrinter     DeviceType = "printer"
	DeviceCamera      DeviceType = "camera"
	DeviceIoT         DeviceType = "iot"
	DeviceSmartTV     DeviceType = "smart_tv"
	DeviceGameConsole DeviceType = "game_console"
	DeviceMobile      DeviceType = "mobile"
	DeviceNAS         DeviceType = "nas"
	DeviceUnknown     DeviceType = "unknown"
)

// PortInfo describes an open port on a device. Records are immutable
// once produced by a scan.
type PortInfo struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	State    string `json:"state"`
	Service  string `json:"service,omitempty"`
	Version  string `json:"version,omitempty"`
	Banner   string `json:"banner,omitempty"`
}

// Device describes a discovered network device. Vendor and DeviceType
// are derived by fingerprinting, never taken from the scanner output.
type Device struct {
	IP         string     `json:"ip"`
	MAC        string     `json:"mac,omitempty"`
	Hostname   string     `json:"hostname,omitempty"`
	Vendor     string     `json:"vendor,omitempty"`
	OS         string     `json:"os,omitempty"`
	OSAccuracy int        `json:"os_accuracy,omitempty"`
	DeviceType DeviceType `json:"device_type,omitempty"`
	Ports      []PortInfo `json:"open_ports"`
	LastSeen   time.Time  `json:"last_seen"`
	IsUp       bool       `json:"is_up"`
}

// OpenPortNumbers returns the set of open port numbers on the device.
func (d *Device) OpenPortNumbers() map[int]bool {
	ports := make(map[int]bool, len(d.Ports))
	for _, p := range d.Ports {
		if p.State == "open" {
			ports[p.Port] = true
		}
	}
	return ports
}

// ServiceNames returns the set of non-empty service names on the device.
func (d *Device) ServiceNames() map[string]bool {
	services := make(map[string]bool, len(d.Ports))
	for _, p := range d.Ports {
		if p.Service != "" {
			services[p.Service] = true
		}
	}
	return services
}

// ScanResult is the full record of one scan. While the scan runs it is
// owned exclusively by the orchestrator's background worker; once a
// terminal status is set the record is frozen.
type ScanResult struct {
	ScanID       string     `json:"scan_id"`
	TargetRange  string     `json:"target_range"`
	ScanType     ScanType   `json:"scan_type"`
	PortRange    string     `json:"port_range,omitempty"`
	Status       ScanStatus `json:"status"`
	Devices      []Device   `json:"devices"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Progress     float64    `json:"progress"`
	ScannedHosts int        `json:"scanned_hosts"`
	TotalHosts   int        `json:"total_hosts"`
}

// DeviceCount returns the number of devices in the result.
func (r *ScanResult) DeviceCount() int {
	if r == nil {
		return 0
	}
	return len(r.Devices)
}

// Clone returns a deep copy of the result so callers can hand out
// records without exposing the worker's mutable copy.
func (r *ScanResult) Clone() *ScanResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.StartedAt != nil {
		started := *r.StartedAt
		out.StartedAt = &started
	}
	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		out.CompletedAt = &completed
	}
	out.Devices = make([]Device, len(r.Devices))
	copy(out.Devices, r.Devices)
	for i := range out.Devices {
		ports := make([]PortInfo, len(out.Devices[i].Ports))
		copy(ports, out.Devices[i].Ports)
		out.Devices[i].Ports = ports
	}
	return &out
}
