package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAllowlistRejectsBadCIDR(t *testing.T) {
	_, err := NewAllowlist([]string{"10.0.0.0/8", "not-a-cidr"})
	assert.Error(t, err)
}

func TestAllowlistLoopbackAlwaysAllowed(t *testing.T) {
	// Empty allowlist: only loopback can get in.
	allow, err := NewAllowlist(nil)
	require.NoError(t, err)

	assert.True(t, allow.Allowed("127.0.0.1"))
	assert.True(t, allow.Allowed("::1"))
	assert.False(t, allow.Allowed("10.0.0.5"))
}

func TestAllowlistRanges(t *testing.T) {
	allow, err := NewAllowlist([]string{"10.0.0.0/8", "203.0.113.0/24"})
	require.NoError(t, err)

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.5", true},
		{"10.255.255.255", true},
		{"203.0.113.42", true},
		{"192.168.1.1", false},
		{"11.0.0.1", false},
		{"203.0.114.1", false},
		{"127.0.0.1", true}, // loopback bypass
		{"::1", true},
		{"garbage", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, allow.Allowed(tt.ip))
		})
	}
}

func TestAllowlistMappedIPv4(t *testing.T) {
	allow, err := NewAllowlist([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	// IPv4-mapped IPv6 form of an allowed address
	assert.True(t, allow.Allowed("::ffff:10.0.0.5"))
}
