// Package cluster replicates collection and document writes across nodes
// with hashicorp/raft. StateMachine implements raft.FSM, dispatching a
// decoded Command to pkg/collection and pkg/indexer and trapping fatal
// dispatch errors into the indexer's skip-index path so a crash loop
// doesn't keep re-applying a write that kills the process. Node wraps
// *raft.Raft with the membership and leader-forwarding operations the
// rest of glint needs, and keeps pkg/readiness and pkg/metrics in sync
// with raft's leadership and log-position state.
//
// Adapted from the teacher's pkg/manager (Manager/WarrenFSM), generalized
// from container/service/task replication to collection/document
// replication, and with the teacher's grpc-based join RPC replaced by
// raft's own AddVoter/RemoveServer plus a membership string parser
// (membership.go) and an HTTP leader-forwarding proxy (leaderproxy.go).
package cluster
