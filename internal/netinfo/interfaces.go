// Package netinfo enumerates the machine's network interfaces and
// detects the local network range, used to suggest scan targets.
package netinfo

import (
	"net"

	"github.com/scanlab-io/scanlab/internal/logging"
	"github.com/scanlab-io/scanlab/internal/netval"
)

// Interface describes one IPv4-capable network interface.
type Interface struct {
	Name      string `json:"name"`
	IP        string `json:"ip"`
	Netmask   string `json:"netmask"`
	Network   string `json:"network"`
	IsPrivate bool   `json:"is_private"`
}

// ListInterfaces returns all up, non-loopback interfaces that carry an
// IPv4 address.
func ListInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]Interface, 0, len(ifaces))

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip == nil {
				continue
			}

			network := ipNet.IP.Mask(ipNet.Mask)

			out = append(out, Interface{
				Name:      iface.Name,
				IP:        ip.String(),
				Netmask:   net.IP(ipNet.Mask).String(),
				Network:   (&net.IPNet{IP: network, Mask: ipNet.Mask}).String(),
				IsPrivate: netval.IsPrivateIP(ip),
			})
			break
		}
	}

	logging.Debug("Enumerated network interfaces", "count", len(out))
	return out, nil
}

// DetectLocalNetwork returns the CIDR of the primary local network, or
// "" when it cannot be determined. The primary network is the first
// non-loopback private interface.
func DetectLocalNetwork() string {
	ifaces, err := ListInterfaces()
	if err != nil {
		logging.Warn("Failed to enumerate interfaces", "error", err)
		return ""
	}

	for _, iface := range ifaces {
		if iface.Name == "lo" || iface.IP == "127.0.0.1" {
			continue
		}
		if iface.IsPrivate {
			logging.Info("Detected local network", "network", iface.Network, "interface", iface.Name)
			return iface.Network
		}
	}
	return ""
}
