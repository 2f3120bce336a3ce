package cluster

import (
	"net"
	"strconv"
	"strings"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/log"
)

// maxHostnameLen is the 64-byte hostname cap spec.md §6's cluster
// membership string box imposes; a longer entry is treated the same way
// as an unresolvable one.
const maxHostnameLen = 64

// Peer is one resolved cluster member: the raft peering address and the
// address clients should be forwarded to for writes.
type Peer struct {
	Host        string
	PeeringPort string
	APIPort     string
}

// PeeringAddr returns the host:port raft's transport dials.
func (p Peer) PeeringAddr() string {
	return joinHostPort(p.Host, p.PeeringPort)
}

// APIAddr returns the host:port the leader-forwarding proxy dials.
func (p Peer) APIAddr() string {
	return joinHostPort(p.Host, p.APIPort)
}

func joinHostPort(host, port string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]:" + port
	}
	return net.JoinHostPort(host, port)
}

// ParseMembership parses a cluster membership string of the form
// "host:peering_port:api_port,host2:peering_port2:api_port2,...", per
// spec.md §6. An IPv6 host must be wrapped in brackets, matching the
// standard host:port bracketing convention. Entries whose hostname is
// unresolvable (DNS failure or an empty/over-length name) are dropped
// rather than aborting the whole parse; ParseMembership only fails the
// whole string if every entry turns out unresolvable, per §8's boundary
// behavior.
func ParseMembership(csv string) ([]Peer, error) {
	logger := log.WithComponent("cluster")
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, glinterr.ClientError("nodes", "cluster membership string is empty")
	}

	var peers []Peer
	for _, entry := range strings.Split(csv, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		p, ok := parseEntry(entry)
		if !ok {
			logger.Warn().Str("entry", entry).Msg("dropping unresolvable membership entry")
			continue
		}
		peers = append(peers, p)
	}

	if len(peers) == 0 {
		return nil, glinterr.ClientError("nodes", "no resolvable entries in cluster membership string %q", csv)
	}
	return peers, nil
}

// parseEntry splits one "host:peering_port:api_port" entry, handling an
// IPv6 host wrapped in brackets the same way net.SplitHostPort would if
// it understood a third trailing port.
func parseEntry(entry string) (Peer, bool) {
	host, rest, ok := splitHost(entry)
	if !ok {
		return Peer{}, false
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return Peer{}, false
	}
	peeringPort, apiPort := parts[0], parts[1]
	if !isValidPort(peeringPort) || !isValidPort(apiPort) {
		return Peer{}, false
	}
	if !hostnameResolvable(host) {
		return Peer{}, false
	}
	return Peer{Host: host, PeeringPort: peeringPort, APIPort: apiPort}, true
}

// splitHost separates the leading host component (bracketed for IPv6)
// from the "peering_port:api_port" remainder.
func splitHost(entry string) (host, rest string, ok bool) {
	if strings.HasPrefix(entry, "[") {
		end := strings.Index(entry, "]")
		if end < 0 || end+1 >= len(entry) || entry[end+1] != ':' {
			return "", "", false
		}
		return entry[1:end], entry[end+2:], true
	}
	parts := strings.SplitN(entry, ":", 3)
	if len(parts) != 3 {
		return "", "", false
	}
	return parts[0], parts[1] + ":" + parts[2], true
}

func isValidPort(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0 && n < 65536
}

// hostnameResolvable reports whether host is short enough and resolves
// to at least one address. A literal IP address always resolves without
// a DNS lookup.
func hostnameResolvable(host string) bool {
	if host == "" || len(host) > maxHostnameLen {
		return false
	}
	if net.ParseIP(host) != nil {
		return true
	}
	addrs, err := net.LookupHost(host)
	return err == nil && len(addrs) > 0
}
