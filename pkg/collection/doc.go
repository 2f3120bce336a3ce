// Package collection implements a single collection's write and read
// surface: schema-validated document writes that fan out into the five
// index families, reference resolution against other collections, and the
// boot-time load protocol that rebuilds every in-memory index from the KV
// store after a restart.
//
// A Collection owns no network or consensus machinery of its own — the
// state machine in pkg/cluster calls into it once a write has already been
// committed through raft, and pkg/query calls into it (through the same
// Evaluator surface pkg/filter consumes) to run reads.
package collection
