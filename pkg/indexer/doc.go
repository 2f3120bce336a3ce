// Package indexer implements the batched indexer sitting between the write path and storage: the
// drain side of the write pipeline that sits between the raft apply path
// (and, on the leader, the HTTP handler directly) and pkg/collection.
//
// Writes are hashed across N queues by collection name, with collections
// joined by a chained write (a reference insert that cascades into
// another collection) coalesced into the same queue via transitive-closure
// grouping, so that related writes never race each other across queues.
// A write that spans more than one raft log entry arrives as a sequence
// of chunks; the indexer stages them under $RL_<req_id>_<chunk_index>
// until num_chunks have landed, then reassembles and dispatches. Adapted
// from the teacher's pkg/worker (drain pool shape), pkg/scheduler
// (ticker-driven cycle) and pkg/reconciler (GC ticker) idioms.
package indexer
