package cluster

import (
	"strings"
	"testing"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/stretchr/testify/require"
)

func TestParseMembershipSingleEntry(t *testing.T) {
	peers, err := ParseMembership("127.0.0.1:8300:8200")
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, "127.0.0.1", peers[0].Host)
	require.Equal(t, "8300", peers[0].PeeringPort)
	require.Equal(t, "8200", peers[0].APIPort)
	require.Equal(t, "127.0.0.1:8300", peers[0].PeeringAddr())
	require.Equal(t, "127.0.0.1:8200", peers[0].APIAddr())
}

func TestParseMembershipMultipleEntries(t *testing.T) {
	peers, err := ParseMembership("127.0.0.1:8300:8200,127.0.0.2:8300:8200,127.0.0.3:8300:8200")
	require.NoError(t, err)
	require.Len(t, peers, 3)
}

func TestParseMembershipIgnoresBlankEntries(t *testing.T) {
	peers, err := ParseMembership("127.0.0.1:8300:8200,, ,")
	require.NoError(t, err)
	require.Len(t, peers, 1)
}

func TestParseMembershipIPv6Bracketed(t *testing.T) {
	peers, err := ParseMembership("[::1]:8300:8200")
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, "::1", peers[0].Host)
	require.Equal(t, "[::1]:8300", peers[0].PeeringAddr())
}

func TestParseMembershipRejectsEmptyString(t *testing.T) {
	_, err := ParseMembership("")
	require.Error(t, err)
	require.Equal(t, glinterr.KindClient, glinterr.KindOf(err))
}

func TestParseMembershipDropsUnresolvableEntries(t *testing.T) {
	longHost := strings.Repeat("a", maxHostnameLen+1)
	peers, err := ParseMembership("127.0.0.1:8300:8200," + longHost + ":8300:8200")
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, "127.0.0.1", peers[0].Host)
}

func TestParseMembershipFailsWhenAllUnresolvable(t *testing.T) {
	longHost := strings.Repeat("a", maxHostnameLen+1)
	_, err := ParseMembership(longHost + ":8300:8200")
	require.Error(t, err)
	require.Equal(t, glinterr.KindClient, glinterr.KindOf(err))
}

func TestParseMembershipRejectsMalformedPort(t *testing.T) {
	_, err := ParseMembership("127.0.0.1:notaport:8200")
	require.Error(t, err)
}
