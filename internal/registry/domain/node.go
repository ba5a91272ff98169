package domain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// NodeIDLength is the size of a node's public-key identifier in bytes.
const NodeIDLength = 64

// NodeID is a node's 512-bit public-key identifier. Two records with the same
// id are the same peer regardless of endpoint. The zero value stands for an
// unknown identity (manually configured peers whose key is learned later).
type NodeID [NodeIDLength]byte

// ParseNodeID parses a 128-character hex string into a NodeID.
func ParseNodeID(s string) (NodeID, error) {
	var id NodeID
	if len(s) != NodeIDLength*2 {
		return id, fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidNodeID, NodeIDLength*2, len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return NodeID{}, fmt.Errorf("%w: %v", ErrInvalidNodeID, err)
	}
	return id, nil
}

// RandomNodeID returns a freshly generated identifier for the local node when
// none is configured.
func RandomNodeID() NodeID {
	var id NodeID
	_, _ = rand.Read(id[:])
	return id
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}

// IsZero reports whether the identity is unknown.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// PeerType distinguishes peers that must remain connected from ordinary
// discovered peers. Only Optional is currently produced; Required is reserved
// for reserved-peer support.
type PeerType int

const (
	PeerTypeOptional PeerType = iota
	PeerTypeRequired
)

const defaultFailurePercentage = 50

const uriScheme = "enode://"

// Node is one peer record: identity, endpoint and reliability counters.
// Attempts counts dial attempts ever made, Failures how many of those failed.
// Callers increment the two independently; failures <= attempts is a caller
// contract, not enforced here.
type Node struct {
	ID       NodeID
	Endpoint NodeEndpoint
	PeerType PeerType
	Attempts uint32
	Failures uint32
}

// NewNode returns a fresh optional peer record with zero counters.
func NewNode(id NodeID, endpoint NodeEndpoint) Node {
	return Node{ID: id, Endpoint: endpoint, PeerType: PeerTypeOptional}
}

// FailurePercentage returns the node's failure ratio in buckets of 5%, in
// [0,100]. With zero attempts the default of 50% is returned so unproven
// peers interleave with proven ones instead of being starved or prioritized.
func (n Node) FailurePercentage() int {
	if n.Attempts == 0 {
		return defaultFailurePercentage
	}
	return int(uint64(n.Failures) * 100 / uint64(n.Attempts) / 5 * 5)
}

// URL formats the record as its canonical enode URI. The UDP port is appended
// with "+" only when it differs from the TCP port.
func (n Node) URL() string {
	if n.Endpoint.UDPPort != n.Endpoint.TCPPort {
		return fmt.Sprintf("%s%s@%s+%d", uriScheme, n.ID, n.Endpoint.TCPAddr(), n.Endpoint.UDPPort)
	}
	return fmt.Sprintf("%s%s@%s", uriScheme, n.ID, n.Endpoint.TCPAddr())
}

func (n Node) String() string {
	return n.URL()
}

// ParseNode parses an enode URI of the form
//
//	enode://<128-hex-id>@<host>[:<tcp_port>][+<udp_port>]
//
// A string without the scheme-and-id prefix is treated as a bare endpoint and
// yields a record with a zero id. Host resolution may block; callers bound it
// through ctx.
func ParseNode(ctx context.Context, s string) (Node, error) {
	if len(s) > 136 && s[:len(uriScheme)] == uriScheme && s[136] == '@' {
		id, err := ParseNodeID(s[len(uriScheme):136])
		if err != nil {
			return Node{}, err
		}
		endpoint, err := parseNodeEndpoint(ctx, s[137:])
		if err != nil {
			return Node{}, err
		}
		return NewNode(id, endpoint), nil
	}

	endpoint, err := parseNodeEndpoint(ctx, s)
	if err != nil {
		return Node{}, err
	}
	return NewNode(NodeID{}, endpoint), nil
}

// parseNodeEndpoint handles the optional "+<udp_port>" suffix of the URI's
// endpoint segment before resolving the remaining "host:port".
func parseNodeEndpoint(ctx context.Context, s string) (NodeEndpoint, error) {
	hostPort := s
	udpPort := uint64(0)
	hasUDP := false

	if i := strings.LastIndexByte(s, '+'); i >= 0 {
		port, err := strconv.ParseUint(s[i+1:], 10, 16)
		if err != nil {
			return NodeEndpoint{}, &AddressResolveError{Host: s, Err: err}
		}
		hostPort = s[:i]
		udpPort = port
		hasUDP = true
	}

	endpoint, err := ResolveEndpoint(ctx, hostPort)
	if err != nil {
		return NodeEndpoint{}, err
	}
	if hasUDP {
		endpoint.UDPPort = uint16(udpPort)
	}
	return endpoint, nil
}

// ValidateNodeURL reports whether the given enode URL is well formed and
// resolvable, returning a descriptive error when it is not.
func ValidateNodeURL(ctx context.Context, url string) error {
	_, err := ParseNode(ctx, url)
	return err
}
