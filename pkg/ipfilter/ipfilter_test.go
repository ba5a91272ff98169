package ipfilter

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomAllow(t *testing.T) {
	filter, err := New("none", []string{"10.0.0.0/8", "1.0.0.0/8"}, nil)
	require.NoError(t, err)

	assert.False(t, filter.Allowed(netip.MustParseAddr("123.99.55.44")))
	assert.True(t, filter.Allowed(netip.MustParseAddr("10.0.0.1")))
	assert.True(t, filter.Allowed(netip.MustParseAddr("1.0.0.55")))
}

func TestCustomBlock(t *testing.T) {
	filter, err := New("all", nil, []string{"10.0.0.0/8", "1.0.0.0/8"})
	require.NoError(t, err)

	assert.True(t, filter.Allowed(netip.MustParseAddr("123.99.55.44")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("10.0.0.1")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("1.0.0.55")))
}

func TestCustomAllowIPv6(t *testing.T) {
	filter, err := New("none", []string{"fc00::/8"}, nil)
	require.NoError(t, err)

	assert.True(t, filter.Allowed(netip.MustParseAddr("fc00::")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("fd00::")))
}

func TestCustomBlockIPv6(t *testing.T) {
	filter, err := New("all", nil, []string{"fc00::/8"})
	require.NoError(t, err)

	assert.False(t, filter.Allowed(netip.MustParseAddr("fc00::")))
	assert.True(t, filter.Allowed(netip.MustParseAddr("fd00::")))
}

func TestBlockWinsOverAllow(t *testing.T) {
	filter, err := New("all", []string{"10.0.0.0/8"}, []string{"10.1.0.0/16"})
	require.NoError(t, err)

	assert.True(t, filter.Allowed(netip.MustParseAddr("10.0.0.1")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("10.1.2.3")))
}

func TestPredefinedPrivate(t *testing.T) {
	filter := Filter{Predefined: AllowPrivate}

	assert.True(t, filter.Allowed(netip.MustParseAddr("192.168.1.5")))
	assert.True(t, filter.Allowed(netip.MustParseAddr("10.20.30.40")))
	assert.True(t, filter.Allowed(netip.MustParseAddr("fc00::2")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("8.8.8.8")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("127.0.0.1")))
}

func TestPredefinedPublic(t *testing.T) {
	filter := Filter{Predefined: AllowPublic}

	assert.True(t, filter.Allowed(netip.MustParseAddr("123.99.55.44")))
	assert.True(t, filter.Allowed(netip.MustParseAddr("2606:4700::1111")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("192.168.1.5")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("fc00::2")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("127.0.0.1")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("198.51.100.7")))
	assert.False(t, filter.Allowed(netip.MustParseAddr("2001:db8::1")))
}

func TestDefaultAllowsEverything(t *testing.T) {
	filter := Default()

	assert.True(t, filter.Allowed(netip.MustParseAddr("10.0.0.1")))
	assert.True(t, filter.Allowed(netip.MustParseAddr("123.99.55.44")))
	assert.True(t, filter.Allowed(netip.MustParseAddr("fd00::1")))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("sometimes", nil, nil)
	assert.Error(t, err)

	_, err = New("all", []string{"10.0.0.0/99"}, nil)
	assert.Error(t, err)

	_, err = New("all", nil, []string{"not-a-cidr"})
	assert.Error(t, err)
}

func TestUsablePredicates(t *testing.T) {
	assert.True(t, IsUsablePrivate(netip.MustParseAddr("172.16.5.5")))
	assert.False(t, IsUsablePrivate(netip.MustParseAddr("123.99.55.44")))
	assert.False(t, IsUsablePrivate(netip.MustParseAddr("0.0.0.0")))

	assert.True(t, IsUsablePublic(netip.MustParseAddr("123.99.55.44")))
	assert.False(t, IsUsablePublic(netip.MustParseAddr("255.255.255.255")))
	assert.False(t, IsUsablePublic(netip.MustParseAddr("240.0.0.1")))
	assert.False(t, IsUsablePublic(netip.MustParseAddr("ff02::1")))
}
