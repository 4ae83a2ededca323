package guard

import (
	"fmt"
	"net/netip"
)

// Allowlist restricts vendor-originated traffic to known network ranges.
// Built once at startup from configuration and immutable afterwards.
type Allowlist struct {
	networks []netip.Prefix
}

// NewAllowlist parses the configured CIDR ranges. A malformed range is a
// configuration error and fails startup rather than silently widening or
// narrowing the boundary.
func NewAllowlist(cidrs []string) (*Allowlist, error) {
	networks := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR range %q: %w", cidr, err)
		}
		networks = append(networks, prefix.Masked())
	}
	return &Allowlist{networks: networks}, nil
}

// Allowed reports whether the caller IP may deliver vendor traffic.
// Loopback is always allowed for local testing. An IP that fails to parse
// or falls outside every configured range is denied.
func (a *Allowlist) Allowed(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	if addr.IsLoopback() {
		return true
	}

	addr = addr.Unmap()
	for _, network := range a.networks {
		if network.Contains(addr) {
			return true
		}
	}
	return false
}
