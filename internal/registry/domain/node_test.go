package domain

import (
	"context"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIDHex = "a979fb575495b8d6db44f750317d0f4622bf4c2aa3365d6af7c284339968eef29b69ad0dce72a4d8db5ebb4968de0e3bec910127f134779fbcb0cb6d3331163c"

func TestParseNode(t *testing.T) {
	node, err := ParseNode(context.Background(), "enode://"+testIDHex+"@22.99.55.44:7770")
	require.NoError(t, err)

	wantID, err := ParseNodeID(testIDHex)
	require.NoError(t, err)

	assert.Equal(t, wantID, node.ID)
	assert.Equal(t, netip.MustParseAddr("22.99.55.44"), node.Endpoint.IP)
	assert.Equal(t, uint16(7770), node.Endpoint.TCPPort)
	assert.Equal(t, uint16(7770), node.Endpoint.UDPPort)
	assert.Equal(t, PeerTypeOptional, node.PeerType)
	assert.Zero(t, node.Attempts)
	assert.Zero(t, node.Failures)
}

func TestParseNode_UDPPortSuffix(t *testing.T) {
	node, err := ParseNode(context.Background(), "enode://"+testIDHex+"@22.99.55.44:7770+7771")
	require.NoError(t, err)

	assert.Equal(t, uint16(7770), node.Endpoint.TCPPort)
	assert.Equal(t, uint16(7771), node.Endpoint.UDPPort)
}

func TestParseNode_BareEndpoint(t *testing.T) {
	node, err := ParseNode(context.Background(), "22.99.55.44:7770")
	require.NoError(t, err)

	assert.True(t, node.ID.IsZero())
	assert.Equal(t, uint16(7770), node.Endpoint.TCPPort)
}

func TestParseNode_InvalidID(t *testing.T) {
	url := "enode://" + strings.Repeat("z", 128) + "@22.99.55.44:7770"
	_, err := ParseNode(context.Background(), url)
	assert.ErrorIs(t, err, ErrInvalidNodeID)
}

func TestParseNodeID_WrongLength(t *testing.T) {
	_, err := ParseNodeID("abcdef")
	assert.ErrorIs(t, err, ErrInvalidNodeID)

	_, err = ParseNodeID(testIDHex + "00")
	assert.ErrorIs(t, err, ErrInvalidNodeID)
}

func TestNodeURL(t *testing.T) {
	id, err := ParseNodeID(testIDHex)
	require.NoError(t, err)

	same := NewNode(id, NodeEndpoint{IP: netip.MustParseAddr("22.99.55.44"), TCPPort: 7770, UDPPort: 7770})
	assert.Equal(t, "enode://"+testIDHex+"@22.99.55.44:7770", same.URL())

	split := NewNode(id, NodeEndpoint{IP: netip.MustParseAddr("22.99.55.44"), TCPPort: 7770, UDPPort: 7771})
	assert.Equal(t, "enode://"+testIDHex+"@22.99.55.44:7770+7771", split.URL())
}

func TestNodeURLRoundTrip(t *testing.T) {
	id, err := ParseNodeID(testIDHex)
	require.NoError(t, err)

	node := NewNode(id, NodeEndpoint{IP: netip.MustParseAddr("fc00::1"), TCPPort: 30303, UDPPort: 30301})
	parsed, err := ParseNode(context.Background(), node.URL())
	require.NoError(t, err)

	assert.Equal(t, node.ID, parsed.ID)
	assert.Equal(t, node.Endpoint, parsed.Endpoint)
}

func TestFailurePercentage(t *testing.T) {
	// Zero attempts always yields the default, whatever the failures say.
	assert.Equal(t, 50, Node{}.FailurePercentage())
	assert.Equal(t, 50, Node{Failures: 7}.FailurePercentage())

	assert.Equal(t, 0, Node{Attempts: 1}.FailurePercentage())
	assert.Equal(t, 30, Node{Attempts: 3, Failures: 1}.FailurePercentage())
	assert.Equal(t, 50, Node{Attempts: 2, Failures: 1}.FailurePercentage())
	assert.Equal(t, 100, Node{Attempts: 2, Failures: 2}.FailurePercentage())
}

func TestFailurePercentage_BucketsOfFive(t *testing.T) {
	for attempts := uint32(1); attempts <= 20; attempts++ {
		for failures := uint32(0); failures <= attempts; failures++ {
			p := Node{Attempts: attempts, Failures: failures}.FailurePercentage()
			assert.Zero(t, p%5, "attempts=%d failures=%d", attempts, failures)
			assert.GreaterOrEqual(t, p, 0)
			assert.LessOrEqual(t, p, 100)
		}
	}
}

func TestValidateNodeURL(t *testing.T) {
	assert.NoError(t, ValidateNodeURL(context.Background(), "enode://"+testIDHex+"@22.99.55.44:7770"))
	assert.Error(t, ValidateNodeURL(context.Background(), "enode://"+strings.Repeat("z", 128)+"@22.99.55.44:7770"))
	assert.Error(t, ValidateNodeURL(context.Background(), "enode://"+testIDHex+"@22.99.55.44"))
	assert.Error(t, ValidateNodeURL(context.Background(), ""))
}
