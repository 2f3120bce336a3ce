package cluster

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/glint/pkg/collection"
	"github.com/cuemby/glint/pkg/events"
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/indexer"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/log"
	"github.com/cuemby/glint/pkg/metrics"
	"github.com/cuemby/glint/pkg/readiness"
	"github.com/cuemby/glint/pkg/schema"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Config configures one Node. Bootstrap is true exactly once per cluster,
// on the first node brought up; every other node joins an existing
// cluster by having its peering address added as a voter through
// ChangePeers on the current leader.
type Config struct {
	NodeID      string
	PeeringAddr string
	DataDir     string
	Bootstrap   bool
	Peers       []Peer
	StartPeriod time.Duration
}

// Node wraps a *raft.Raft and the StateMachine it drives, exposing the
// operations the rest of glint needs: applying replicated writes,
// changing membership, and reporting cluster status. Adapted from the
// teacher's Manager (Bootstrap/Join/AddVoter/RemoveServer/IsLeader/
// LeaderAddr/Apply/GetRaftStats), generalized so a single code path
// handles both bootstrap and join (the caller decides via Config.Bootstrap
// and adds the new node as a voter from the existing leader instead of a
// bespoke join RPC, since raft's own AddVoter already is the join
// protocol once a TCP transport is listening).
type Node struct {
	mu sync.RWMutex

	cfg Config
	raf *raft.Raft
	fsm *StateMachine

	gate   *readiness.Gate
	broker *events.Broker

	// peersByPeering maps a peering address (the raft ServerAddress) to
	// the API address writes should be forwarded to, so GetLeaderURL can
	// translate raft's notion of the leader into an HTTP endpoint.
	peersByPeering map[string]string

	stopCh chan struct{}
}

// InitNode builds the raft instance, bootstraps or prepares it to join,
// and starts the background goroutines that mirror raft's leadership
// state into pkg/metrics and pkg/readiness. Grounded on the teacher's
// Manager.Bootstrap/Join, whose duplicated raft-setup code is merged here
// into one path (the only difference between the two was a RemoteClient
// RPC that raft's own AddVoter supersedes).
func InitNode(cfg Config, store kv.Store, manager *collection.Manager, ix *indexer.Indexer, broker *events.Broker) (*Node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, glinterr.Fatal(err, "cluster: create data directory")
	}

	fsm := NewStateMachine(store, manager, ix, cfg.DataDir)

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	// Tuned for LAN/edge deployments rather than raft's WAN-oriented
	// defaults (HeartbeatTimeout=1s, ElectionTimeout=1s,
	// LeaderLeaseTimeout=500ms): the shorter timeouts target well under
	// 10s failover.
	raftCfg.HeartbeatTimeout = 500 * time.Millisecond
	raftCfg.ElectionTimeout = 500 * time.Millisecond
	raftCfg.CommitTimeout = 50 * time.Millisecond
	raftCfg.LeaderLeaseTimeout = 250 * time.Millisecond

	addr, err := net.ResolveTCPAddr("tcp", cfg.PeeringAddr)
	if err != nil {
		return nil, glinterr.Fatal(err, "cluster: resolve peering address %q", cfg.PeeringAddr)
	}
	transport, err := raft.NewTCPTransport(cfg.PeeringAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, glinterr.Fatal(err, "cluster: create raft transport")
	}

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, glinterr.Fatal(err, "cluster: create snapshot store")
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		return nil, glinterr.Fatal(err, "cluster: create raft log store")
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		return nil, glinterr.Fatal(err, "cluster: create raft stable store")
	}

	raf, err := raft.NewRaft(raftCfg, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, glinterr.Fatal(err, "cluster: start raft")
	}

	n := &Node{
		cfg:            cfg,
		raf:            raf,
		fsm:            fsm,
		gate:           readiness.NewGate(cfg.StartPeriod),
		broker:         broker,
		peersByPeering: make(map[string]string),
		stopCh:         make(chan struct{}),
	}
	manager.SetReadinessGate(n.gate)

	for _, p := range cfg.Peers {
		n.peersByPeering[p.PeeringAddr()] = p.APIAddr()
	}

	if cfg.Bootstrap {
		servers := []raft.Server{{ID: raftCfg.LocalID, Address: transport.LocalAddr()}}
		for _, p := range cfg.Peers {
			if p.PeeringAddr() == cfg.PeeringAddr {
				continue
			}
			servers = append(servers, raft.Server{ID: raft.ServerID(p.Host), Address: raft.ServerAddress(p.PeeringAddr())})
		}
		future := raf.BootstrapCluster(raft.Configuration{Servers: servers})
		if err := future.Error(); err != nil {
			return nil, glinterr.Fatal(err, "cluster: bootstrap cluster")
		}
	}

	metrics.RegisterComponent("raft", true, "started")
	go n.watchLeadership()

	return n, nil
}

// watchLeadership mirrors raft's leadership transitions into
// pkg/readiness and pkg/metrics, and publishes EventLeaderChanged so any
// subscriber can observe them without polling.
func (n *Node) watchLeadership() {
	logger := log.WithComponent("raft")
	for {
		select {
		case isLeader, ok := <-n.raf.LeaderCh():
			if !ok {
				return
			}
			if isLeader {
				n.gate.OnLeaderStart(n.currentTerm())
				metrics.RaftLeader.Set(1)
				logger.Info().Str("node_id", n.cfg.NodeID).Msg("became raft leader")
			} else {
				n.gate.OnLeaderStop()
				metrics.RaftLeader.Set(0)
				logger.Info().Str("node_id", n.cfg.NodeID).Msg("lost raft leadership")
			}
			if n.broker != nil {
				url, _ := n.GetLeaderURL()
				n.broker.Publish(&events.Event{Type: events.EventLeaderChanged, Message: url})
			}
		case <-n.stopCh:
			return
		}
	}
}

func (n *Node) currentTerm() uint64 {
	stats := n.raf.Stats()
	var term uint64
	if s, ok := stats["term"]; ok {
		fmt.Sscanf(s, "%d", &term)
	}
	return term
}

// WaitUntilReady blocks until this node has a known leader (itself or
// another voter) or timeout elapses.
func (n *Node) WaitUntilReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if n.raf.Leader() != "" {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return glinterr.Unavailable("cluster: no leader elected within %s", timeout)
}

// Shutdown stops the leadership watcher and raft itself.
func (n *Node) Shutdown() error {
	close(n.stopCh)
	future := n.raf.Shutdown()
	if err := future.Error(); err != nil {
		return glinterr.Fatal(err, "cluster: shutdown raft")
	}
	metrics.RegisterComponent("raft", false, "stopped")
	return nil
}

// apply marshals cmd and replicates it through raft, returning the
// dispatch error the StateMachine's Apply produced (if any).
func (n *Node) apply(op CommandOp, payload interface{}) error {
	if n.raf.State() != raft.Leader {
		return glinterr.Unavailable("cluster: not the leader, current leader is %s", n.raf.Leader())
	}
	data, err := EncodeCommand(op, payload)
	if err != nil {
		return err
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RaftApplyDuration)

	future := n.raf.Apply(data, 5*time.Second)
	if err := future.Error(); err != nil {
		return glinterr.Fatal(err, "cluster: apply command")
	}
	if resp := future.Response(); resp != nil {
		if respErr, ok := resp.(error); ok && respErr != nil {
			return respErr
		}
	}
	return nil
}

// ApplyCreateCollection replicates a collection creation, carrying every
// collection-wide setting (fallback_field_type, enable_nested_fields,
// symbols_to_index, token_separators) alongside its fields so every node
// rebuilds the identical schema from the replicated log entry.
func (n *Node) ApplyCreateCollection(name string, sch *schema.Schema) error {
	cmd := createCollectionCmd{
		Name:                name,
		Fields:              sch.Fields,
		DefaultSortingField: sch.DefaultSortingField,
		EnableNestedFields:  sch.EnableNestedFields,
		SymbolsToIndex:      sch.SymbolsToIndex,
		TokenSeparators:     sch.TokenSeparators,
	}
	if sch.HasFallbackType {
		cmd.FallbackFieldType = sch.FallbackFieldType.String()
	}
	return n.apply(OpCreateCollection, cmd)
}

// ApplyDropCollection replicates a collection drop.
func (n *Node) ApplyDropCollection(name string) error {
	return n.apply(OpDropCollection, dropCollectionCmd{Name: name})
}

// ApplyUpsertSymlink replicates a symlink registration.
func (n *Node) ApplyUpsertSymlink(alias, target string) error {
	return n.apply(OpUpsertSymlink, upsertSymlinkCmd{Alias: alias, Target: target})
}

// ApplySubmitWrite replicates one (already-chunked) write submission.
func (n *Node) ApplySubmitWrite(reqID, collectionName string, action indexer.Action, chunkIndex, numChunks int, body []byte) error {
	return n.apply(OpSubmitWrite, submitWriteCmd{
		ReqID:      reqID,
		Collection: collectionName,
		Action:     action,
		ChunkIndex: chunkIndex,
		NumChunks:  numChunks,
		Body:       body,
	})
}

// ChangePeers adds a new voter at peeringAddr under nodeID. Only the
// leader can do this; grounded on the teacher's AddVoter.
func (n *Node) ChangePeers(nodeID, peeringAddr string) error {
	if n.raf.State() != raft.Leader {
		return glinterr.Unavailable("cluster: not the leader, current leader is %s", n.raf.Leader())
	}
	future := n.raf.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(peeringAddr), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return glinterr.Fatal(err, "cluster: add voter %s", nodeID)
	}
	metrics.RaftPeers.Inc()
	return nil
}

// ResetPeers removes nodeID from the voter set. Only the leader can do
// this; grounded on the teacher's RemoveServer.
func (n *Node) ResetPeers(nodeID string) error {
	if n.raf.State() != raft.Leader {
		return glinterr.Unavailable("cluster: not the leader, current leader is %s", n.raf.Leader())
	}
	future := n.raf.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return glinterr.Fatal(err, "cluster: remove server %s", nodeID)
	}
	metrics.RaftPeers.Dec()
	return nil
}

// RefreshNodes reconciles the voter set against nodesCsv (a membership
// string per membership.go), adding any resolvable peer missing from the
// configuration and removing any voter absent from it. allowSingleNodeReset
// permits collapsing down to a single voter (this node), which is refused
// by default since it silently discards the safety net of replication.
func (n *Node) RefreshNodes(nodesCsv string, allowSingleNodeReset bool) error {
	peers, err := ParseMembership(nodesCsv)
	if err != nil {
		return err
	}
	if len(peers) == 1 && !allowSingleNodeReset {
		return glinterr.ClientError("nodes", "refusing to reset to a single-node cluster without allow_single_node_reset")
	}

	n.mu.Lock()
	n.peersByPeering = make(map[string]string, len(peers))
	for _, p := range peers {
		n.peersByPeering[p.PeeringAddr()] = p.APIAddr()
	}
	n.mu.Unlock()

	future := n.raf.GetConfiguration()
	if err := future.Error(); err != nil {
		return glinterr.Fatal(err, "cluster: read configuration")
	}
	current := make(map[raft.ServerAddress]raft.ServerID)
	for _, srv := range future.Configuration().Servers {
		current[srv.Address] = srv.ID
	}

	wanted := make(map[raft.ServerAddress]raft.ServerID)
	for _, p := range peers {
		wanted[raft.ServerAddress(p.PeeringAddr())] = raft.ServerID(p.Host)
	}

	for addr, id := range wanted {
		if _, ok := current[addr]; !ok {
			if err := n.ChangePeers(string(id), string(addr)); err != nil {
				return err
			}
		}
	}
	for addr, id := range current {
		if _, ok := wanted[addr]; !ok {
			if err := n.ResetPeers(string(id)); err != nil {
				return err
			}
		}
	}
	return nil
}

// TriggerVote forces this node to stand down as leader (if it is one),
// triggering a new election. Used by operators to move leadership off a
// node about to be drained.
func (n *Node) TriggerVote() error {
	if n.raf.State() != raft.Leader {
		return glinterr.ClientError("", "cluster: node is not the leader")
	}
	future := n.raf.LeadershipTransfer()
	if err := future.Error(); err != nil {
		return glinterr.Fatal(err, "cluster: transfer leadership")
	}
	return nil
}

// Status is the snapshot GetStatus returns: the raft state, log
// positions, current leader, and voter count, the same fields the
// teacher's GetRaftStats reports.
type Status struct {
	State         string `json:"state"`
	LastLogIndex  uint64 `json:"last_log_index"`
	AppliedIndex  uint64 `json:"applied_index"`
	Leader        string `json:"leader"`
	Peers         int    `json:"peers"`
	ReadCaughtUp  bool   `json:"read_caught_up"`
	WriteCaughtUp bool   `json:"write_caught_up"`
}

// GetStatus reports the node's current raft and readiness state.
func (n *Node) GetStatus() Status {
	s := Status{
		State:         n.raf.State().String(),
		LastLogIndex:  n.raf.LastIndex(),
		AppliedIndex:  n.raf.AppliedIndex(),
		Leader:        string(n.raf.Leader()),
		ReadCaughtUp:  n.gate.IsReadReady(),
		WriteCaughtUp: n.gate.IsWriteReady(),
	}
	n.gate.ObserveApply(s.AppliedIndex, s.LastLogIndex)
	metrics.RaftLogIndex.Set(float64(s.LastLogIndex))
	metrics.RaftAppliedIndex.Set(float64(s.AppliedIndex))

	if future := n.raf.GetConfiguration(); future.Error() == nil {
		s.Peers = len(future.Configuration().Servers)
		metrics.RaftPeers.Set(float64(s.Peers))
	}
	return s
}

// IsLeader reports whether this node currently holds raft leadership.
func (n *Node) IsLeader() bool {
	return n.raf.State() == raft.Leader
}

// RaftCounters reports the raft log/applied indexes and peer count,
// satisfying pkg/metrics.RaftSource without pkg/metrics needing to import
// this package.
func (n *Node) RaftCounters() (lastLogIndex, appliedIndex uint64, peers int) {
	s := n.GetStatus()
	return s.LastLogIndex, s.AppliedIndex, s.Peers
}

// GetLeaderURL resolves the raft leader's peering address to its API
// address, the address leaderproxy.go forwards a write to. Returns an
// error if no leader is known or the leader isn't in the known peer set
// (e.g. a node joined after RefreshNodes last ran on this node).
func (n *Node) GetLeaderURL() (string, error) {
	leaderAddr := n.raf.Leader()
	if leaderAddr == "" {
		return "", glinterr.Unavailable("cluster: no known leader")
	}
	n.mu.RLock()
	apiAddr, ok := n.peersByPeering[string(leaderAddr)]
	n.mu.RUnlock()
	if !ok {
		return "", glinterr.Unavailable("cluster: leader %s not in known peer set", leaderAddr)
	}
	return apiAddr, nil
}

// Gate exposes the readiness gate wired into this node, for read paths
// (pkg/collection.Manager.DoSearch) and status reporting that live
// outside the cluster package.
func (n *Node) Gate() *readiness.Gate {
	return n.gate
}
