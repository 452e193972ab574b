package fingerprint

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlab-io/scanlab/internal/model"
)

func deviceWithPorts(ip string, ports ...int) *model.Device {
	d := &model.Device{IP: ip, IsUp: true}
	for _, p := range ports {
		d.Ports = append(d.Ports, model.PortInfo{Port: p, Protocol: "tcp", State: "open"})
	}
	return d
}

func TestClassifyDeviceTypes(t *testing.T) {
	f := New()

	tests := []struct {
		name  string
		ip    string
		ports []int
		want  model.DeviceType
	}{
		{"printer jetdirect and ipp", "192.168.1.30", []int{9100, 631}, model.DevicePrinter},
		{"printer lpd only", "192.168.1.31", []int{515}, model.DevicePrinter},
		{"printer beats gateway address", "192.168.1.1", []int{631, 80}, model.DevicePrinter},
		{"camera rtsp", "192.168.1.40", []int{554, 80}, model.DeviceCamera},
		{"workstation rdp", "192.168.1.50", []int{3389}, model.DeviceWorkstation},
		{"workstation rdp with smb", "192.168.1.51", []int{3389, 445, 139}, model.DeviceWorkstation},
		{"workstation vnc", "192.168.1.52", []int{5900, 22}, model.DeviceWorkstation},
		{"nas smb afp", "192.168.1.60", []int{445, 548, 80}, model.DeviceNAS},
		{"workstation msrpc", "192.168.1.53", []int{135}, model.DeviceWorkstation},
		{"iot mqtt", "192.168.1.70", []int{1883, 80}, model.DeviceIoT},
		{"router at dot one", "192.168.1.1", []int{80, 443, 53}, model.DeviceRouter},
		{"router at dot 254", "10.0.0.254", []int{443}, model.DeviceRouter},
		{"server port set", "10.0.0.17", []int{22, 80, 443}, model.DeviceServer},
		{"server many ports", "10.0.0.18", []int{1234, 2345, 3456, 4567, 5678, 6789}, model.DeviceServer},
		{"workstation fallback", "192.168.1.99", []int{8000}, model.DeviceWorkstation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := deviceWithPorts(tt.ip, tt.ports...)
			f.Classify(d)
			assert.Equal(t, tt.want, d.DeviceType)
		})
	}
}

func TestClassifyNoPortsIsUnknown(t *testing.T) {
	f := New()
	d := &model.Device{IP: "192.168.1.200", IsUp: true}
	f.Classify(d)
	assert.Equal(t, model.DeviceUnknown, d.DeviceType)
}

func TestClassifyStableRegardlessOfExtraPorts(t *testing.T) {
	f := New()

	// A printer signature wins no matter what else is open.
	d := deviceWithPorts("192.168.1.77", 9100, 631, 80, 443, 22, 23)
	f.Classify(d)
	assert.Equal(t, model.DevicePrinter, d.DeviceType)

	// RDP always means workstation even on a busy host.
	d = deviceWithPorts("192.168.1.78", 3389, 80, 443, 445, 139, 22)
	f.Classify(d)
	assert.Equal(t, model.DeviceWorkstation, d.DeviceType)
}

func TestVendorFromOUITable(t *testing.T) {
	f := New()

	tests := []struct {
		mac    string
		vendor string
	}{
		{"B8:27:EB:12:34:56", "Raspberry Pi"},
		{"b8-27-eb-12-34-56", "Raspberry Pi"},
		{"00:1A:70:AA:BB:CC", "Linksys"},
		{"00:50:56:00:00:01", "VMware"},
		{"FF:FF:FF:00:00:00", ""},
	}

	for _, tt := range tests {
		d := &model.Device{IP: "192.168.1.2", MAC: tt.mac, IsUp: true}
		f.Classify(d)
		assert.Equal(t, tt.vendor, d.Vendor, "mac %s", tt.mac)
	}
}

type stubLookup struct {
	vendor string
	err    error
	calls  int
}

func (s *stubLookup) Lookup(mac string) (string, error) {
	s.calls++
	return s.vendor, s.err
}

func TestVendorExternalLookupFallback(t *testing.T) {
	lookup := &stubLookup{vendor: "Ubiquiti"}
	f := New(WithVendorLookup(lookup))

	d := &model.Device{IP: "192.168.1.2", MAC: "F0:9F:C2:11:22:33", IsUp: true}
	f.Classify(d)
	assert.Equal(t, "Ubiquiti", d.Vendor)

	// Second device with the same prefix hits the cache.
	d2 := &model.Device{IP: "192.168.1.3", MAC: "F0:9F:C2:44:55:66", IsUp: true}
	f.Classify(d2)
	assert.Equal(t, "Ubiquiti", d2.Vendor)
	assert.Equal(t, 1, lookup.calls)
}

func TestVendorExternalLookupSoftFails(t *testing.T) {
	lookup := &stubLookup{err: fmt.Errorf("offline")}
	f := New(WithVendorLookup(lookup))

	d := &model.Device{IP: "192.168.1.2", MAC: "F0:9F:C2:11:22:33", IsUp: true}
	f.Classify(d)
	assert.Empty(t, d.Vendor)
	assert.Equal(t, model.DeviceUnknown, d.DeviceType)
}

func TestVendorTableTakesPriorityOverLookup(t *testing.T) {
	lookup := &stubLookup{vendor: "ShouldNotBeUsed"}
	f := New(WithVendorLookup(lookup))

	d := &model.Device{IP: "192.168.1.2", MAC: "B8:27:EB:00:00:01", IsUp: true}
	f.Classify(d)
	assert.Equal(t, "Raspberry Pi", d.Vendor)
	assert.Zero(t, lookup.calls)
}

func TestEnrichPorts(t *testing.T) {
	f := New()

	d := &model.Device{
		IP:   "192.168.1.5",
		IsUp: true,
		Ports: []model.PortInfo{
			{Port: 22, Protocol: "tcp", State: "open"},
			{Port: 80, Protocol: "tcp", State: "open", Service: "custom-web"},
			{Port: 9100, Protocol: "tcp", State: "open"},
			{Port: 49152, Protocol: "tcp", State: "open"},
		},
	}
	f.EnrichPorts(d)

	assert.Equal(t, "ssh", d.Ports[0].Service)
	assert.Equal(t, "custom-web", d.Ports[1].Service, "existing names are never overwritten")
	assert.Equal(t, "jetdirect", d.Ports[2].Service)
	assert.Empty(t, d.Ports[3].Service, "unknown ports stay unnamed")
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "https", ServiceName(443))
	assert.Equal(t, "mqtt", ServiceName(1883))
	assert.Empty(t, ServiceName(42424))
}

func TestHTTPVendorLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/AA:BB:CC:00:11:22" {
			fmt.Fprint(w, "Acme Networks")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	lookup := NewHTTPVendorLookup(srv.URL)

	vendor, err := lookup.Lookup("aa-bb-cc-00-11-22")
	require.NoError(t, err)
	assert.Equal(t, "Acme Networks", vendor)

	_, err = lookup.Lookup("11:22:33:44:55:66")
	assert.Error(t, err)
}
