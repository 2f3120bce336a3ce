// Package readiness tracks the read_caught_up / write_caught_up bits of
// spec.md §5: a follower must not serve reads until its applied index has
// caught up with the leader's, and writes must not be accepted on a node
// that has never heard from a leader.
//
// Adapted from the teacher's pkg/health Checker/Status shape (consecutive
// counters plus a start-period grace), repurposed from container health
// checks to raft catch-up state.
package readiness

import (
	"sync"
	"time"
)

// Gate tracks one node's catch-up state against the raft log.
type Gate struct {
	mu sync.RWMutex

	leaderTerm    uint64
	writeCaughtUp bool
	readCaughtUp  bool

	appliedIndex uint64
	leaderIndex  uint64

	startedAt   time.Time
	startPeriod time.Duration
}

// NewGate builds a Gate that refuses reads/writes until explicitly told
// the node is caught up. startPeriod is a grace window (mirroring the
// teacher's Config.StartPeriod) during which IsReadReady reports not-ready
// regardless of the applied index, giving the collection-manager load
// protocol time to finish replaying documents.
func NewGate(startPeriod time.Duration) *Gate {
	return &Gate{startedAt: time.Now(), startPeriod: startPeriod}
}

// OnLeaderStart flips write-readiness on: this node just became the raft
// leader, so every write it accepts is authoritative for its own term.
func (g *Gate) OnLeaderStart(term uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leaderTerm = term
	g.writeCaughtUp = true
	g.readCaughtUp = true
}

// OnLeaderStop flips write-readiness off: this node lost leadership and
// must stop accepting writes until either it regains it or the new
// leader's writes catch it up as a follower.
func (g *Gate) OnLeaderStop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writeCaughtUp = false
}

// ObserveApply records that the local state machine has applied through
// appliedIndex. leaderIndex is the last index the node has observed the
// leader advertise (via AppendEntries/heartbeat); once appliedIndex
// reaches it the node is read-caught-up.
func (g *Gate) ObserveApply(appliedIndex, leaderIndex uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appliedIndex = appliedIndex
	if leaderIndex > g.leaderIndex {
		g.leaderIndex = leaderIndex
	}
	g.readCaughtUp = g.appliedIndex >= g.leaderIndex
}

// IsReadReady reports whether the node may serve a read: past the start
// grace period and caught up through the last known leader index.
func (g *Gate) IsReadReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if time.Since(g.startedAt) < g.startPeriod {
		return false
	}
	return g.readCaughtUp
}

// IsWriteReady reports whether the node may accept a write submission
// (it is the leader and has completed its post-election catch-up).
func (g *Gate) IsWriteReady() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.writeCaughtUp
}

// LeaderTerm returns the raft term this node last became leader in, or 0
// if it has never been leader.
func (g *Gate) LeaderTerm() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.leaderTerm
}

// AppliedIndex returns the last raft log index this node has applied.
func (g *Gate) AppliedIndex() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.appliedIndex
}
