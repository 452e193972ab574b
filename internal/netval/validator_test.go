package netval

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanlab-io/scanlab/internal/errors"
)

func TestValidateSingleIP(t *testing.T) {
	v := New(0)

	tests := []struct {
		name     string
		target   string
		wantCode errors.ErrorCode
	}{
		{"home range", "192.168.1.1", ""},
		{"enterprise range", "10.0.0.5", ""},
		{"shared office range", "172.16.10.20", ""},
		{"upper bound of 172 range", "172.31.255.255", ""},
		{"loopback", "127.0.0.1", ""},
		{"link local", "169.254.1.1", ""},
		{"public dns", "8.8.8.8", errors.CodeNotPrivate},
		{"just outside 172 range", "172.32.0.1", errors.CodeNotPrivate},
		{"just below 172 range", "172.15.255.255", errors.CodeNotPrivate},
		{"garbage", "not-an-ip", errors.CodeInvalidFormat},
		{"empty", "", errors.CodeInvalidFormat},
		{"ipv6", "::1", errors.CodeInvalidFormat},
		{"trailing junk", "192.168.1.1x", errors.CodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := v.Validate(tt.target)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.False(t, target.IsNetwork())
				assert.Equal(t, 1, target.NumAddresses())
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
			assert.Nil(t, target)
		})
	}
}

func TestValidateCIDR(t *testing.T) {
	v := New(0)

	tests := []struct {
		name     string
		target   string
		wantCode errors.ErrorCode
	}{
		{"home /24", "192.168.1.0/24", ""},
		{"enterprise /24", "10.1.2.0/24", ""},
		{"small /30", "172.16.0.0/30", ""},
		{"single host /32", "192.168.1.5/32", ""},
		{"whole 192.168 space", "192.168.0.0/16", errors.CodeTooLarge},
		{"whole 10 space", "10.0.0.0/8", errors.CodeTooLarge},
		{"public /24", "1.2.3.0/24", errors.CodeNotPrivate},
		{"just past 172 private block", "172.32.0.0/24", errors.CodeNotPrivate},
		{"bad prefix", "192.168.1.0/33", errors.CodeInvalidFormat},
		{"not a cidr", "192.168.1.0/abc", errors.CodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := v.Validate(tt.target)
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.True(t, target.IsNetwork())
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
		})
	}
}

func TestValidateSizeBeforePrivacyForHugePublicRanges(t *testing.T) {
	// An oversized range is reported as TOO_LARGE even if it is also
	// public; size is the cheaper check and its message tells the user
	// how to shrink the target.
	v := New(0)
	_, err := v.Validate("0.0.0.0/0")
	require.Error(t, err)
	assert.Equal(t, errors.CodeTooLarge, errors.GetCode(err))
}

func TestValidateCustomMaxSize(t *testing.T) {
	v := New(16)

	_, err := v.Validate("192.168.1.0/28")
	assert.NoError(t, err)

	_, err = v.Validate("192.168.1.0/27")
	require.Error(t, err)
	assert.Equal(t, errors.CodeTooLarge, errors.GetCode(err))
}

func TestDescribeNetwork(t *testing.T) {
	v := New(0)

	info, err := v.Describe("192.168.1.0/24")
	require.NoError(t, err)

	assert.Equal(t, "network", info.Type)
	assert.Equal(t, "192.168.1.0", info.NetworkAddress)
	assert.Equal(t, "192.168.1.255", info.BroadcastAddress)
	assert.Equal(t, "255.255.255.0", info.Netmask)
	assert.Equal(t, 256, info.NumAddresses)
	assert.Equal(t, 254, info.NumHosts)
	assert.True(t, info.IsPrivate)
}

func TestDescribeSingleIP(t *testing.T) {
	v := New(0)

	info, err := v.Describe("10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "single_ip", info.Type)
	assert.Equal(t, "10.0.0.1", info.IPAddress)
	assert.Equal(t, 1, info.NumHosts)
	assert.True(t, info.IsPrivate)
}

func TestDescribeRejectsInvalidTargets(t *testing.T) {
	v := New(0)

	_, err := v.Describe("8.8.8.0/24")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotPrivate, errors.GetCode(err))
}

func TestIsPrivateIP(t *testing.T) {
	assert.True(t, IsPrivateIP(net.ParseIP("192.168.0.1")))
	assert.True(t, IsPrivateIP(net.ParseIP("10.255.255.255")))
	assert.True(t, IsPrivateIP(net.ParseIP("127.0.0.1")))
	assert.False(t, IsPrivateIP(net.ParseIP("11.0.0.1")))
	assert.False(t, IsPrivateIP(net.ParseIP("192.169.0.1")))
}

func TestValidatorIsConcurrencySafe(t *testing.T) {
	v := New(0)
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_, _ = v.Validate("192.168.1.0/24")
				_, _ = v.Validate("8.8.8.8")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
