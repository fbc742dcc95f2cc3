package collyfetch

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsBlockedIP(t *testing.T) {
	t.Parallel()

	blocked := []string{
		"127.0.0.1",        // loopback
		"10.1.2.3",         // private
		"172.16.0.1",       // private
		"192.168.1.1",      // private
		"169.254.1.1",      // link-local
		"0.0.0.0",          // unspecified
		"100.64.0.1",       // carrier-grade NAT
		"192.0.2.10",       // TEST-NET-1
		"198.51.100.7",     // TEST-NET-2
		"203.0.113.9",      // TEST-NET-3
		"198.18.0.1",       // benchmarking
		"::1",              // IPv6 loopback
		"fe80::1",          // IPv6 link-local
		"fd00::1",          // IPv6 unique local
		"::ffff:127.0.0.1", // mapped loopback
		"::ffff:10.0.0.1",  // mapped private
	}
	for _, raw := range blocked {
		require.True(t, isBlockedIP(netip.MustParseAddr(raw)), "expected %s to be blocked", raw)
	}

	allowed := []string{
		"93.184.216.34",       // example.com
		"8.8.8.8",             // public resolver
		"2606:2800:220:1:248:1893:25c8:1946", // public IPv6
	}
	for _, raw := range allowed {
		require.False(t, isBlockedIP(netip.MustParseAddr(raw)), "expected %s to be allowed", raw)
	}
}

func TestBlockPrivateAddresses(t *testing.T) {
	t.Parallel()

	err := blockPrivateAddresses("tcp", "127.0.0.1:80", nil)
	require.ErrorIs(t, err, ErrBlockedAddress)

	err = blockPrivateAddresses("tcp", "8.8.8.8:443", nil)
	require.NoError(t, err)

	err = blockPrivateAddresses("tcp", "not-an-addr", nil)
	require.ErrorIs(t, err, ErrBlockedAddress)
}

func TestSafeDialerDefaults(t *testing.T) {
	t.Parallel()

	d := safeDialer(0)
	require.Equal(t, 5*time.Second, d.Timeout)
	require.NotNil(t, d.Control)
}
