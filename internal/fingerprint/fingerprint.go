// Package fingerprint classifies discovered devices. It derives a device
// type from open ports and service names using an ordered rule chain, and
// resolves the vendor from the MAC address OUI prefix with an optional
// external lookup as fallback.
package fingerprint

import (
	"strings"
	"sync"

	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/model"
)

// portServices maps well-known ports to service names, used to fill in
// ports the scanner reported without a service.
var portServices = map[int]string{
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "dns",
	67:    "dhcp",
	68:    "dhcp",
	80:    "http",
	110:   "pop3",
	123:   "ntp",
	137:   "netbios",
	138:   "netbios",
	139:   "netbios",
	143:   "imap",
	161:   "snmp",
	443:   "https",
	445:   "smb",
	515:   "lpd",
	548:   "afp",
	554:   "rtsp",
	631:   "ipp",
	1883:  "mqtt",
	3306:  "mysql",
	3389:  "rdp",
	5000:  "upnp",
	5353:  "mdns",
	5432:  "postgresql",
	5900:  "vnc",
	6379:  "redis",
	8080:  "http-proxy",
	8443:  "https-alt",
	8883:  "mqtt-ssl",
	9100:  "jetdirect",
	27017: "mongodb",
}

// signature describes a port/service pattern for one device type.
type signature struct {
	requiredAny []int
	services    []string
}

var (
	printerSignature = signature{requiredAny: []int{515, 631, 9100}, services: []string{"lpd", "ipp", "jetdirect"}}
	cameraSignature  = signature{requiredAny: []int{554, 8554}, services: []string{"rtsp"}}
	nasSignature     = signature{requiredAny: []int{139, 445, 548}, services: []string{"smb", "afp", "ftp"}}
	iotSignature     = signature{requiredAny: []int{1883, 8883, 5683}, services: []string{"mqtt", "coap"}}
)

// serverPorts is the fixed set used by the "looks like a server" rule.
var serverPorts = map[int]bool{
	21: true, 22: true, 25: true, 53: true, 80: true,
	110: true, 143: true, 443: true, 993: true, 995: true,
}

// manyPortsThreshold is the port count above which an otherwise
// unclassified device is assumed to be a server.
const manyPortsThreshold = 5

// VendorLookup resolves a MAC address to a vendor name using an external
// database. Implementations must be safe for concurrent use. Lookup
// failures are soft: the fingerprinter treats any error as "unknown".
type VendorLookup interface {
	Lookup(mac string) (string, error)
}

// Fingerprinter identifies device types and vendors from scan output.
type Fingerprinter struct {
	lookup VendorLookup

	mu    sync.RWMutex
	cache map[string]string
}

// Option configures a Fingerprinter.
type Option func(*Fingerprinter)

// WithVendorLookup attaches an external vendor lookup used when the
// built-in OUI table has no entry for a MAC prefix.
func WithVendorLookup(lookup VendorLookup) Option {
	return func(f *Fingerprinter) {
		f.lookup = lookup
	}
}

// New creates a device fingerprinter.
func New(opts ...Option) *Fingerprinter {
	f := &Fingerprinter{
		cache: make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Classify populates the device's Vendor and DeviceType fields and
// enriches port service names. The device is modified in place and
// returned for chaining.
func (f *Fingerprinter) Classify(device *model.Device) *model.Device {
	if device.MAC != "" {
		device.Vendor = f.identifyVendor(device.MAC)
	}

	device.DeviceType = f.identifyType(device)
	f.EnrichPorts(device)

	logging.Debug("Device classified",
		"ip", device.IP,
		"device_type", device.DeviceType,
		"vendor", device.Vendor)

	return device
}

// EnrichPorts fills in service names for open ports that lack one.
// Existing names are never overwritten.
func (f *Fingerprinter) EnrichPorts(device *model.Device) *model.Device {
	for i := range device.Ports {
		if device.Ports[i].Service == "" {
			device.Ports[i].Service = portServices[device.Ports[i].Port]
		}
	}
	return device
}

// ServiceName returns the well-known service name for a port, or "".
func ServiceName(port int) string {
	return portServices[port]
}

// identifyVendor resolves a vendor from the MAC address. The built-in
// OUI table takes priority; the external lookup is consulted only on a
// table miss and any failure degrades to "".
func (f *Fingerprinter) identifyVendor(mac string) string {
	normalized := NormalizeMAC(mac)
	if len(normalized) < 8 {
		return ""
	}

	prefix := normalized[:8]
	if vendor, ok := ouiVendors[prefix]; ok {
		return vendor
	}

	if f.lookup == nil {
		return ""
	}

	f.mu.RLock()
	cached, ok := f.cache[prefix]
	f.mu.RUnlock()
	if ok {
		return cached
	}

	vendor, err := f.lookup.Lookup(normalized)
	if err != nil {
		logging.Debug("External vendor lookup failed", "mac_prefix", prefix, "error", err)
		return ""
	}

	f.mu.Lock()
	f.cache[prefix] = vendor
	f.mu.Unlock()

	return vendor
}

// NormalizeMAC converts a MAC address to upper-case colon-separated form.
func NormalizeMAC(mac string) string {
	mac = strings.ToUpper(mac)
	mac = strings.ReplaceAll(mac, "-", ":")
	mac = strings.ReplaceAll(mac, ".", ":")
	return mac
}

// typeRule is one step of the classification chain: the first rule whose
// predicate matches decides the device type.
type typeRule struct {
	name  string
	match func(d *model.Device, ports map[int]bool, services map[string]bool) bool
	label model.DeviceType
}

// typeRules is evaluated strictly top to bottom; order is load-bearing.
// RDP/VNC outranks the NAS file-sharing signature because workstations
// commonly expose SMB too, and the gateway rule runs late so that a
// printer at .1 still classifies as a printer.
var typeRules = []typeRule{
	{
		name: "printer",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			return matchesSignature(printerSignature, ports, services)
		},
		label: model.DevicePrinter,
	},
	{
		name: "camera",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			return matchesSignature(cameraSignature, ports, services)
		},
		label: model.DeviceCamera,
	},
	{
		name: "workstation-remote-desktop",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			return ports[3389] || ports[5900]
		},
		label: model.DeviceWorkstation,
	},
	{
		name: "nas",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			return matchesSignature(nasSignature, ports, services)
		},
		label: model.DeviceNAS,
	},
	{
		name: "workstation-msrpc",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			return ports[135]
		},
		label: model.DeviceWorkstation,
	},
	{
		name: "iot",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			return matchesSignature(iotSignature, ports, services)
		},
		label: model.DeviceIoT,
	},
	{
		name: "router-gateway",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			if !strings.HasSuffix(d.IP, ".1") && !strings.HasSuffix(d.IP, ".254") {
				return false
			}
			return ports[80] || ports[443]
		},
		label: model.DeviceRouter,
	},
	{
		name: "server-port-set",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			count := 0
			for p := range ports {
				if serverPorts[p] {
					count++
				}
			}
			return count >= 3
		},
		label: model.DeviceServer,
	},
	{
		name: "workstation-netbios",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			return ports[139] || ports[445]
		},
		label: model.DeviceWorkstation,
	},
	{
		name: "server-many-ports",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			return len(ports) > manyPortsThreshold
		},
		label: model.DeviceServer,
	},
	{
		name: "workstation-fallback",
		match: func(d *model.Device, ports map[int]bool, services map[string]bool) bool {
			return len(ports) > 0
		},
		label: model.DeviceWorkstation,
	},
}

// identifyType runs the ordered rule chain against the device's open
// ports. Each rule short-circuits on first match.
func (f *Fingerprinter) identifyType(device *model.Device) model.DeviceType {
	if len(device.Ports) == 0 {
		return model.DeviceUnknown
	}

	ports := device.OpenPortNumbers()
	services := device.ServiceNames()

	for _, rule := range typeRules {
		if rule.match(device, ports, services) {
			return rule.label
		}
	}
	return model.DeviceUnknown
}

// matchesSignature reports whether the open-port and service sets match
// a device signature: at least one required port must be open, or one of
// the signature's service names must be present alongside it.
func matchesSignature(sig signature, ports map[int]bool, services map[string]bool) bool {
	anyPort := false
	for _, p := range sig.requiredAny {
		if ports[p] {
			anyPort = true
			break
		}
	}
	if !anyPort {
		return false
	}

	for _, s := range sig.services {
		if services[s] {
			return true
		}
	}
	return anyPort
}
