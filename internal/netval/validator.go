// Package netval validates scan targets against the private-range and
// size policy. Only RFC1918, loopback, and link-local address space may
// ever be scanned; everything else is rejected before a scan is created.
package netval

import (
	"fmt"
	"math"
	"net"
	"strings"

	"github.com/scanlab-io/scanlab/internal/errors"
	"github.com/scanlab-io/scanlab/internal/logging"
)

// DefaultMaxNetworkSize is the largest address count a single scan target
// may cover (a /24 equivalent).
const DefaultMaxNetworkSize = 256

// privateNetworks are the RFC1918 ranges.
var privateNetworks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
)

// additionalAllowed are the loopback and link-local ranges, permitted in
// addition to RFC1918 space.
var additionalAllowed = mustParseCIDRs(
	"127.0.0.0/8",
	"169.254.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, ipnet, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("netval: bad built-in CIDR %q: %v", c, err))
		}
		nets = append(nets, ipnet)
	}
	return nets
}

// Target is a validated scan target: either a single address or a CIDR
// network, always entirely within allowed private space.
type Target struct {
	// Raw is the original target string as supplied by the caller.
	Raw string
	// IP is set when the target is a single address.
	IP net.IP
	// Network is set when the target is a CIDR range.
	Network *net.IPNet
}

// IsNetwork reports whether the target is a CIDR range rather than a
// single address.
func (t *Target) IsNetwork() bool {
	return t.Network != nil
}

// NumAddresses returns the number of addresses the target covers.
func (t *Target) NumAddresses() int {
	if t.Network == nil {
		return 1
	}
	return addressCount(t.Network)
}

// Info describes a validated target for UI display.
type Info struct {
	Target           string `json:"target"`
	Type             string `json:"type"`
	IPAddress        string `json:"ip_address,omitempty"`
	NetworkAddress   string `json:"network_address,omitempty"`
	BroadcastAddress string `json:"broadcast_address,omitempty"`
	Netmask          string `json:"netmask,omitempty"`
	NumAddresses     int    `json:"num_addresses"`
	NumHosts         int    `json:"num_hosts"`
	IsPrivate        bool   `json:"is_private"`
}

// Validator validates network targets for scanning. It holds no mutable
// state and is safe for concurrent use.
type Validator struct {
	maxNetworkSize int
}

// New creates a validator. A maxNetworkSize of zero or less selects the
// default of 256 addresses.
func New(maxNetworkSize int) *Validator {
	if maxNetworkSize <= 0 {
		maxNetworkSize = DefaultMaxNetworkSize
	}
	return &Validator{maxNetworkSize: maxNetworkSize}
}

// MaxNetworkSize returns the configured address-count limit.
func (v *Validator) MaxNetworkSize() int {
	return v.maxNetworkSize
}

// Validate parses target as a single IPv4 address or CIDR range and
// enforces the scanning policy. It returns a scan error with code
// INVALID_FORMAT, NOT_PRIVATE, or TOO_LARGE on failure.
func (v *Validator) Validate(target string) (*Target, error) {
	target = strings.TrimSpace(target)

	if strings.Contains(target, "/") {
		ip, ipnet, err := net.ParseCIDR(target)
		if err != nil || ip.To4() == nil {
			return nil, invalidFormat(target)
		}
		return v.validateNetwork(target, ipnet)
	}

	ip := net.ParseIP(target)
	if ip == nil || ip.To4() == nil {
		return nil, invalidFormat(target)
	}
	return v.validateIP(target, ip)
}

// Describe validates target and returns display information about it.
// It never grants access to anything Validate would reject.
func (v *Validator) Describe(target string) (*Info, error) {
	t, err := v.Validate(target)
	if err != nil {
		return nil, err
	}

	if !t.IsNetwork() {
		return &Info{
			Target:       t.Raw,
			Type:         "single_ip",
			IPAddress:    t.IP.String(),
			NumAddresses: 1,
			NumHosts:     1,
			IsPrivate:    true,
		}, nil
	}

	numAddrs := addressCount(t.Network)
	numHosts := numAddrs - 2
	if numHosts < 1 {
		numHosts = 1
	}

	return &Info{
		Target:           t.Raw,
		Type:             "network",
		NetworkAddress:   t.Network.IP.String(),
		BroadcastAddress: broadcastAddress(t.Network).String(),
		Netmask:          net.IP(t.Network.Mask).String(),
		NumAddresses:     numAddrs,
		NumHosts:         numHosts,
		IsPrivate:        true,
	}, nil
}

// IsPrivateIP reports whether ip falls inside an allowed private,
// loopback, or link-local range.
func IsPrivateIP(ip net.IP) bool {
	for _, n := range privateNetworks {
		if n.Contains(ip) {
			return true
		}
	}
	for _, n := range additionalAllowed {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (v *Validator) validateIP(target string, ip net.IP) (*Target, error) {
	if !IsPrivateIP(ip) {
		logging.Warn("Rejected non-private scan target", "target", target)
		return nil, notPrivate(target)
	}
	return &Target{Raw: target, IP: ip}, nil
}

func (v *Validator) validateNetwork(target string, ipnet *net.IPNet) (*Target, error) {
	numAddrs := addressCount(ipnet)
	if numAddrs > v.maxNetworkSize {
		logging.Warn("Rejected oversized scan target",
			"target", target,
			"addresses", numAddrs,
			"max", v.maxNetworkSize)
		return nil, tooLarge(target, numAddrs, v.maxNetworkSize)
	}

	if !isPrivateNetwork(ipnet) {
		logging.Warn("Rejected non-private scan target", "target", target)
		return nil, notPrivate(target)
	}

	return &Target{Raw: target, Network: ipnet}, nil
}

// isPrivateNetwork reports whether the whole network lies inside one of
// the allowed ranges, comparing network and broadcast addresses against
// the candidate supernet.
func isPrivateNetwork(ipnet *net.IPNet) bool {
	for _, n := range privateNetworks {
		if isSubnetOf(ipnet, n) {
			return true
		}
	}
	for _, n := range additionalAllowed {
		if isSubnetOf(ipnet, n) {
			return true
		}
	}
	return false
}

// isSubnetOf reports whether sub is fully contained in super: both the
// network address and the broadcast address of sub must fall in super.
func isSubnetOf(sub, super *net.IPNet) bool {
	return super.Contains(sub.IP) && super.Contains(broadcastAddress(sub))
}

// broadcastAddress returns the highest address in the network.
func broadcastAddress(ipnet *net.IPNet) net.IP {
	ip := ipnet.IP.To4()
	if ip == nil {
		return ipnet.IP
	}
	mask := ipnet.Mask
	out := make(net.IP, len(ip))
	for i := range ip {
		out[i] = ip[i] | ^mask[i]
	}
	return out
}

// addressCount returns the number of addresses covered by the network.
func addressCount(ipnet *net.IPNet) int {
	ones, bits := ipnet.Mask.Size()
	hostBits := bits - ones
	if hostBits >= 31 {
		return math.MaxInt32
	}
	return 1 << hostBits
}

func invalidFormat(target string) *errors.ScanError {
	return errors.NewScanErrorWithTarget(errors.CodeInvalidFormat,
		fmt.Sprintf("Invalid network format: %s. Use IP address (192.168.1.1) or CIDR notation (192.168.1.0/24)",
			target), target)
}

func notPrivate(target string) *errors.ScanError {
	return errors.NewScanErrorWithTarget(errors.CodeNotPrivate,
		fmt.Sprintf("Only private networks can be scanned. %s is not in a private range "+
			"(10.x.x.x, 172.16-31.x.x, 192.168.x.x).", target), target)
}

func tooLarge(target string, numAddrs, maxSize int) *errors.ScanError {
	return errors.NewScanErrorWithTarget(errors.CodeTooLarge,
		fmt.Sprintf("Network range too large: %d addresses. Maximum allowed is %d addresses. "+
			"Use a smaller range like /24 or specify individual IPs.", numAddrs, maxSize), target)
}
