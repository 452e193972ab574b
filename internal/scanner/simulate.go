package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/model"
)

const (
	// simBaseDelay and simPerDeviceDelay pace the simulated scan so the
	// UX resembles a real one. simMaxDelay caps the total.
	simBaseDelay      = 500 * time.Millisecond
	simPerDeviceDelay = 50 * time.Millisecond
	simMaxDelay       = 3 * time.Second

	simDiscoveryDelay = 300 * time.Millisecond

	// simDownProbability is the chance a generated device is down.
	simDownProbability = 0.1

	// maxSimulatedHosts bounds host enumeration for oversized targets
	// that slipped past validation.
	maxSimulatedHosts = 4096
)

// deviceTemplate fixes the port set, service names, hostname prefix and
// OS string for one generated device type.
type deviceTemplate struct {
	ports          []int
	services       map[int]string
	hostnamePrefix string
	os             string
}

var deviceTemplates = map[model.DeviceType]deviceTemplate{
	model.DeviceRouter: {
		ports:          []int{80, 443, 22, 23, 53},
		services:       map[int]string{80: "http", 443: "https", 22: "ssh", 23: "telnet", 53: "dns"},
		hostnamePrefix: "router",
		os:             "Linux 3.x - 4.x",
	},
	model.DevicePrinter: {
		ports:          []int{631, 9100, 80, 443},
		services:       map[int]string{631: "ipp", 9100: "jetdirect", 80: "http", 443: "https"},
		hostnamePrefix: "printer",
	},
	model.DeviceNAS: {
		ports: []int{22, 80, 139, 445, 548, 2049, 5000, 5001},
		services: map[int]string{
			22: "ssh", 80: "http", 139: "netbios-ssn", 445: "microsoft-ds",
			548: "afp", 2049: "nfs", 5000: "upnp", 5001: "commplex-link",
		},
		hostnamePrefix: "nas",
		os:             "Linux 4.x",
	},
	model.DeviceWorkstation: {
		ports:          []int{135, 139, 445, 3389},
		services:       map[int]string{135: "msrpc", 139: "netbios-ssn", 445: "microsoft-ds", 3389: "ms-wbt-server"},
		hostnamePrefix: "workstation",
		os:             "Windows 10",
	},
	model.DeviceServer: {
		ports:          []int{22, 80, 443, 3306, 5432},
		services:       map[int]string{22: "ssh", 80: "http", 443: "https", 3306: "mysql", 5432: "postgresql"},
		hostnamePrefix: "server",
		os:             "Ubuntu Linux",
	},
	model.DeviceLaptop: {
		ports:          []int{22},
		services:       map[int]string{22: "ssh"},
		hostnamePrefix: "laptop",
		os:             "macOS",
	},
	model.DeviceIoT: {
		ports:          []int{80, 443, 1883, 8883},
		services:       map[int]string{80: "http", 443: "https", 1883: "mqtt", 8883: "secure-mqtt"},
		hostnamePrefix: "iot-device",
	},
	model.DeviceCamera: {
		ports:          []int{80, 554, 8080},
		services:       map[int]string{80: "http", 554: "rtsp", 8080: "http-proxy"},
		hostnamePrefix: "camera",
	},
}

// macPrefix pairs an OUI with its vendor. A slice, not a map: draws must
// be in a fixed order or determinism is lost.
type macPrefix struct {
	prefix string
	vendor string
}

var simMACVendors = []macPrefix{
	{"00:1A:70", "Netgear"},
	{"00:11:22", "Cisco"},
	{"00:50:56", "VMware"},
	{"08:00:27", "VirtualBox"},
	{"00:0C:29", "VMware"},
	{"00:16:3E", "Xen"},
	{"52:54:00", "QEMU"},
	{"AC:DE:48", "TP-Link"},
	{"B8:27:EB", "Raspberry Pi"},
	{"DC:A6:32", "Raspberry Pi"},
}

// typeWeight is one entry of a network-class device mix. Order matters
// for the weighted draw.
type typeWeight struct {
	deviceType model.DeviceType
	weight     float64
}

var (
	homeMix = []typeWeight{
		{model.DeviceLaptop, 0.4},
		{model.DeviceWorkstation, 0.2},
		{model.DevicePrinter, 0.3},
		{model.DeviceIoT, 0.4},
		{model.DeviceCamera, 0.2},
		{model.DeviceNAS, 0.1},
	}
	enterpriseMix = []typeWeight{
		{model.DeviceServer, 0.5},
		{model.DeviceWorkstation, 0.6},
		{model.DevicePrinter, 0.4},
		{model.DeviceNAS, 0.3},
		{model.DeviceLaptop, 0.3},
		{model.DeviceIoT, 0.1},
	}
	officeMix = []typeWeight{
		{model.DeviceWorkstation, 0.5},
		{model.DeviceLaptop, 0.4},
		{model.DeviceServer, 0.3},
		{model.DevicePrinter, 0.4},
		{model.DeviceNAS, 0.2},
		{model.DeviceIoT, 0.2},
	}
)

// Simulator generates realistic fake scan results for training mode. It
// never touches the network. Results are fully deterministic per target:
// the seed is derived from the target string, so the same target always
// yields the same device set.
type Simulator struct{}

// NewSimulator creates a simulated scan engine.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// targetSeed derives the PRNG seed from the first four bytes of the
// target's SHA-256 digest, big-endian.
func targetSeed(target string) uint32 {
	digest := sha256.Sum256([]byte(target))
	return binary.BigEndian.Uint32(digest[:4])
}

// parseTarget returns the network and its usable host addresses.
func parseTarget(target string) (*net.IPNet, []net.IP, error) {
	if !strings.Contains(target, "/") {
		ip := net.ParseIP(target)
		if ip == nil || ip.To4() == nil {
			return nil, nil, errors.NewScanErrorWithTarget(errors.CodeInvalidFormat,
				fmt.Sprintf("Invalid target format: %s", target), target)
		}
		ip = ip.To4()
		network := &net.IPNet{IP: ip, Mask: net.CIDRMask(32, 32)}
		return network, []net.IP{ip}, nil
	}

	_, network, err := net.ParseCIDR(target)
	if err != nil || network.IP.To4() == nil {
		return nil, nil, errors.NewScanErrorWithTarget(errors.CodeInvalidFormat,
			fmt.Sprintf("Invalid target format: %s", target), target)
	}

	ones, bits := network.Mask.Size()
	hostBits := bits - ones
	if hostBits == 0 {
		return network, []net.IP{network.IP.To4()}, nil
	}

	total := 1 << hostBits
	if total > maxSimulatedHosts {
		total = maxSimulatedHosts
	}

	base := binary.BigEndian.Uint32(network.IP.To4())
	hosts := make([]net.IP, 0, total)
	// Skip the network and broadcast addresses.
	for i := 1; i < total-1; i++ {
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, base+uint32(i))
		hosts = append(hosts, ip)
	}
	if len(hosts) == 0 {
		hosts = append(hosts, network.IP.To4())
	}
	return network, hosts, nil
}

// deviceCountRange returns the min/max device count for the network
// class: enterprise 10/8 networks run larger, home 192.168/16 smaller.
func deviceCountRange(network *net.IPNet) (minDevices, maxDevices int) {
	addr := network.IP.String()
	switch {
	case strings.HasPrefix(addr, "10."):
		return 5, 20
	case strings.HasPrefix(addr, "192.168."):
		return 3, 15
	default:
		return 4, 18
	}
}

// deviceMix returns the weighted type distribution for the network
// class. The router is handled separately and always generated first.
func deviceMix(network *net.IPNet) []typeWeight {
	addr := network.IP.String()
	switch {
	case strings.HasPrefix(addr, "192.168."):
		return homeMix
	case strings.HasPrefix(addr, "10."):
		return enterpriseMix
	default:
		return officeMix
	}
}

// pickWeighted draws one device type from the mix.
func pickWeighted(rng *rand.Rand, mix []typeWeight) model.DeviceType {
	total := 0.0
	for _, w := range mix {
		total += w.weight
	}
	r := rng.Float64() * total
	for _, w := range mix {
		r -= w.weight
		if r < 0 {
			return w.deviceType
		}
	}
	return mix[len(mix)-1].deviceType
}

// sampleHosts picks n distinct host IPs in PRNG order.
func sampleHosts(rng *rand.Rand, hosts []net.IP, n int) []net.IP {
	if n > len(hosts) {
		n = len(hosts)
	}
	perm := rng.Perm(len(hosts))
	out := make([]net.IP, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, hosts[idx])
	}
	return out
}

// generateMAC builds a MAC address with a known vendor prefix.
func generateMAC(rng *rand.Rand) (mac, vendor string) {
	entry := simMACVendors[rng.Intn(len(simMACVendors))]
	suffix := fmt.Sprintf("%02X:%02X:%02X", rng.Intn(256), rng.Intn(256), rng.Intn(256))
	return entry.prefix + ":" + suffix, entry.vendor
}

// generateDevice produces one fake device from its type's template. A
// small fraction of devices come up "down" with all attributes blank.
func generateDevice(rng *rand.Rand, ip net.IP, deviceType model.DeviceType, index int) model.Device {
	template := deviceTemplates[deviceType]

	mac, vendor := generateMAC(rng)
	hostname := fmt.Sprintf("%s-%03d", template.hostnamePrefix, index)

	// Expose a random 50-100% subset of the template's ports.
	minPorts := len(template.ports) / 2
	if minPorts < 1 {
		minPorts = 1
	}
	numPorts := minPorts + rng.Intn(len(template.ports)-minPorts+1)
	perm := rng.Perm(len(template.ports))
	selected := make([]int, 0, numPorts)
	for _, idx := range perm[:numPorts] {
		selected = append(selected, template.ports[idx])
	}
	sort.Ints(selected)

	ports := make([]model.PortInfo, 0, len(selected))
	for _, p := range selected {
		service := template.services[p]
		if service == "" {
			service = "unknown"
		}
		ports = append(ports, model.PortInfo{
			Port:     p,
			Protocol: "tcp",
			State:    "open",
			Service:  service,
		})
	}

	var osAccuracy int
	if template.os != "" {
		osAccuracy = 80 + rng.Intn(16)
	}

	isUp := rng.Float64() > simDownProbability
	if !isUp {
		return model.Device{
			IP:         ip.String(),
			DeviceType: model.DeviceUnknown,
			LastSeen:   time.Now(),
			IsUp:       false,
		}
	}

	return model.Device{
		IP:         ip.String(),
		MAC:        mac,
		Hostname:   hostname,
		Vendor:     vendor,
		OS:         template.os,
		OSAccuracy: osAccuracy,
		DeviceType: deviceType,
		Ports:      ports,
		LastSeen:   time.Now(),
		IsUp:       isUp,
	}
}

// ScanNetwork implements Engine. The port range is ignored; generated
// devices expose ports from their type templates regardless.
func (s *Simulator) ScanNetwork(ctx context.Context, target string, scanType model.ScanType, _ string, scanID string) (*model.ScanResult, error) {
	network, hosts, err := parseTarget(target)
	if err != nil {
		return nil, err
	}

	seed := targetSeed(target)
	rng := rand.New(rand.NewSource(int64(seed)))

	minDevices, maxDevices := deviceCountRange(network)
	deviceCount := minDevices + rng.Intn(maxDevices-minDevices+1)

	selected := sampleHosts(rng, hosts, deviceCount)
	mix := deviceMix(network)

	// The gateway comes first, then the weighted mix.
	devices := make([]model.Device, 0, len(selected))
	for i, ip := range selected {
		deviceType := model.DeviceRouter
		if i > 0 {
			deviceType = pickWeighted(rng, mix)
		}
		devices = append(devices, generateDevice(rng, ip, deviceType, i+1))
	}

	startedAt := time.Now()
	s.pace(ctx, simBaseDelay+time.Duration(deviceCount)*simPerDeviceDelay)
	completedAt := time.Now()

	if scanID == "" {
		scanID = fmt.Sprintf("sim-scan-%d", seed)
	}

	logging.InfoScan("Simulated scan completed", target,
		"scan_id", scanID,
		"devices", len(devices))

	return &model.ScanResult{
		ScanID:       scanID,
		TargetRange:  target,
		ScanType:     scanType,
		Status:       model.ScanStatusCompleted,
		Devices:      devices,
		StartedAt:    &startedAt,
		CompletedAt:  &completedAt,
		Progress:     100.0,
		ScannedHosts: len(selected),
		TotalHosts:   len(hosts),
	}, nil
}

// DiscoverHosts implements Engine. It draws the same device population
// as ScanNetwork and reports the up subset.
func (s *Simulator) DiscoverHosts(ctx context.Context, target string) ([]string, error) {
	network, hosts, err := parseTarget(target)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(int64(targetSeed(target))))

	minDevices, maxDevices := deviceCountRange(network)
	deviceCount := minDevices + rng.Intn(maxDevices-minDevices+1)
	selected := sampleHosts(rng, hosts, deviceCount)

	up := make([]string, 0, len(selected))
	for _, ip := range selected {
		if rng.Float64() > simDownProbability {
			up = append(up, ip.String())
		}
	}

	s.pace(ctx, simDiscoveryDelay)
	return up, nil
}

// Progress implements Engine. Simulated scans complete synchronously,
// so progress is always 100.
func (s *Simulator) Progress(_ string) float64 {
	return 100.0
}

// Cancel implements Engine. There is nothing in flight to stop.
func (s *Simulator) Cancel(_ string) bool {
	return false
}

// pace sleeps for the given duration, capped, aborting early if the
// context is done.
func (s *Simulator) pace(ctx context.Context, d time.Duration) {
	if d > simMaxDelay {
		d = simMaxDelay
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
