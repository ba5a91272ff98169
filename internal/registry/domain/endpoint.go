package domain

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// NodeEndpoint is a peer's network address: one IP carrying both the TCP
// listening port and the UDP discovery port. Endpoints are plain values.
type NodeEndpoint struct {
	IP      netip.Addr
	TCPPort uint16
	UDPPort uint16
}

// TCPAddr returns the endpoint's TCP address.
func (e NodeEndpoint) TCPAddr() netip.AddrPort {
	return netip.AddrPortFrom(e.IP, e.TCPPort)
}

// UDPAddr returns the endpoint's UDP address.
func (e NodeEndpoint) UDPAddr() netip.AddrPort {
	return netip.AddrPortFrom(e.IP, e.UDPPort)
}

// IsValid reports whether both ports are set and the IP is specified.
func (e NodeEndpoint) IsValid() bool {
	return e.UDPPort != 0 && e.TCPPort != 0 && e.IP.IsValid() && !e.IP.IsUnspecified()
}

// Encode returns the discovery wire triplet for the endpoint: the raw IP
// bytes (4 for IPv4, 16 for IPv6 in network group order) and both ports.
// IPv6 flow and scope information is not part of the wire format.
func (e NodeEndpoint) Encode() (ipBytes []byte, udpPort, tcpPort uint16) {
	if e.IP.Is4() {
		b := e.IP.As4()
		return b[:], e.UDPPort, e.TCPPort
	}
	b := e.IP.As16()
	return b[:], e.UDPPort, e.TCPPort
}

// DecodeEndpoint rebuilds an endpoint from the discovery wire triplet. The IP
// field must be exactly 4 bytes (IPv4) or 16 bytes (IPv6, eight big-endian
// 16-bit groups); any other length fails with ErrInconsistentLengthAndData.
func DecodeEndpoint(ipBytes []byte, udpPort, tcpPort uint16) (NodeEndpoint, error) {
	switch len(ipBytes) {
	case 4:
		var b [4]byte
		copy(b[:], ipBytes)
		return NodeEndpoint{IP: netip.AddrFrom4(b), TCPPort: tcpPort, UDPPort: udpPort}, nil
	case 16:
		var b [16]byte
		for i := 0; i < 8; i++ {
			group := binary.BigEndian.Uint16(ipBytes[i*2 : i*2+2])
			binary.BigEndian.PutUint16(b[i*2:], group)
		}
		return NodeEndpoint{IP: netip.AddrFrom16(b), TCPPort: tcpPort, UDPPort: udpPort}, nil
	default:
		return NodeEndpoint{}, fmt.Errorf("%w: ip field is %d bytes", ErrInconsistentLengthAndData, len(ipBytes))
	}
}

// ResolveEndpoint parses a "host:port" string into an endpoint, resolving the
// host if it is not an IP literal. The first resolved address wins and the
// UDP port defaults to the TCP port. Resolution may block on DNS; callers
// bound it through ctx.
func ResolveEndpoint(ctx context.Context, s string) (NodeEndpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return NodeEndpoint{}, &AddressResolveError{Host: s, Err: err}
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return NodeEndpoint{}, &AddressResolveError{Host: s, Err: err}
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		addrs, lookupErr := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		if lookupErr != nil {
			return NodeEndpoint{}, &AddressResolveError{Host: host, Err: lookupErr}
		}
		if len(addrs) == 0 {
			return NodeEndpoint{}, &AddressResolveError{Host: host}
		}
		ip = addrs[0]
	}

	return NodeEndpoint{
		IP:      ip.Unmap(),
		TCPPort: uint16(port),
		UDPPort: uint16(port),
	}, nil
}
