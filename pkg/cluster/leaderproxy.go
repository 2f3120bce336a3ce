package cluster

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/log"
)

// LeaderProxy forwards a write a follower received to the current raft
// leader's API address over plain HTTP, replacing the teacher's gRPC
// pkg/client: the only inter-node call left in scope once consensus
// transport itself is raft's own TCP transport (see the dependency
// table's note on why grpc was dropped).
type LeaderProxy struct {
	node   *Node
	client *http.Client
}

// NewLeaderProxy builds a proxy that forwards through node's current
// leader address.
func NewLeaderProxy(node *Node) *LeaderProxy {
	return &LeaderProxy{
		node:   node,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Forward replays method/path/body against the leader's API address and
// returns its response verbatim (status code and body), so the caller's
// own HTTP handler can relay it to the original client unchanged.
func (p *LeaderProxy) Forward(method, path string, header http.Header, body []byte) (status int, respBody []byte, err error) {
	leaderURL, err := p.node.GetLeaderURL()
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequest(method, "http://"+leaderURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, glinterr.Fatal(err, "leaderproxy: build forwarded request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	logger := log.WithComponent("cluster")
	logger.Debug().Str("leader", leaderURL).Str("path", path).Msg("forwarding write to leader")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, glinterr.Unavailable("leaderproxy: forward to leader %s: %v", leaderURL, err)
	}
	defer resp.Body.Close()

	respBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, glinterr.Fatal(err, "leaderproxy: read leader response")
	}
	return resp.StatusCode, respBody, nil
}
