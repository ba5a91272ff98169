// Package ipfilter decides which peer addresses the node is willing to talk
// to: a predefined allow class plus operator-supplied allow/block CIDR lists.
package ipfilter

import (
	"fmt"
	"net/netip"
)

// Predefined selects the built-in allow class.
type Predefined string

const (
	AllowAll     Predefined = "all"
	AllowPrivate Predefined = "private"
	AllowPublic  Predefined = "public"
	AllowNone    Predefined = "none"
)

// Filter combines a predefined allow class with explicit allow and block
// networks. Block always wins over allow so operators keep an unconditional
// deny capability.
type Filter struct {
	Predefined  Predefined
	CustomAllow []netip.Prefix
	CustomBlock []netip.Prefix
}

// Default returns the allow-everything filter.
func Default() Filter {
	return Filter{Predefined: AllowAll}
}

// New builds a filter from configuration strings. Unknown predefined classes
// and malformed CIDRs are rejected.
func New(predefined string, allow, block []string) (Filter, error) {
	switch Predefined(predefined) {
	case AllowAll, AllowPrivate, AllowPublic, AllowNone:
	default:
		return Filter{}, fmt.Errorf("unknown ip filter class %q", predefined)
	}

	f := Filter{Predefined: Predefined(predefined)}
	for _, cidr := range allow {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid allow network %q: %w", cidr, err)
		}
		f.CustomAllow = append(f.CustomAllow, prefix)
	}
	for _, cidr := range block {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid block network %q: %w", cidr, err)
		}
		f.CustomBlock = append(f.CustomBlock, prefix)
	}
	return f, nil
}

// Allowed reports whether the address passes the filter: allowed by the
// predefined class or a custom allow network, and not matched by any block
// network.
func (f Filter) Allowed(ip netip.Addr) bool {
	ip = ip.Unmap()

	allowed := f.predefinedAllows(ip)
	if !allowed {
		for _, prefix := range f.CustomAllow {
			if prefix.Contains(ip) {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return false
	}

	for _, prefix := range f.CustomBlock {
		if prefix.Contains(ip) {
			return false
		}
	}
	return true
}

func (f Filter) predefinedAllows(ip netip.Addr) bool {
	switch f.Predefined {
	case AllowAll:
		return true
	case AllowPrivate:
		return IsUsablePrivate(ip)
	case AllowPublic:
		return IsUsablePublic(ip)
	default:
		return false
	}
}

var v4Broadcast = netip.AddrFrom4([4]byte{255, 255, 255, 255})

// Special-purpose ranges that are never usable as public peer addresses.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),  // shared address space
	netip.MustParsePrefix("192.0.0.0/24"),   // IETF protocol assignments
	netip.MustParsePrefix("192.0.2.0/24"),   // documentation
	netip.MustParsePrefix("198.18.0.0/15"),  // benchmarking
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("2001:db8::/32"),
}

func isUsable(ip netip.Addr) bool {
	return ip.IsValid() && !ip.IsUnspecified() && !ip.IsLoopback() && !ip.IsMulticast() && ip != v4Broadcast
}

// IsUsablePrivate reports whether the address is a usable private-range
// address: RFC 1918 or unique-local, including link-local unicast.
func IsUsablePrivate(ip netip.Addr) bool {
	ip = ip.Unmap()
	return isUsable(ip) && (ip.IsPrivate() || ip.IsLinkLocalUnicast())
}

// IsUsablePublic reports whether the address is globally routable: usable,
// not private, and not in any reserved special-purpose range.
func IsUsablePublic(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !isUsable(ip) || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
		return false
	}
	for _, prefix := range reservedPrefixes {
		if prefix.Contains(ip) {
			return false
		}
	}
	return true
}
