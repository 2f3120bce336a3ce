/*
Package metrics provides Prometheus metrics collection and exposition for the
search core.

The metrics package defines and registers all metrics using the Prometheus
client library, providing observability into collection size, raft health,
indexer throughput, search latency, and vector index rebuild cost. Metrics
are exposed via an HTTP endpoint for scraping by Prometheus servers.

# Metrics Catalog

Collection metrics: glint_collections_total, glint_documents_total{collection}.

Raft metrics: glint_raft_is_leader, glint_raft_peers_total,
glint_raft_log_index, glint_raft_applied_index,
glint_raft_apply_duration_seconds.

Search metrics: glint_search_requests_total{collection,status},
glint_search_request_duration_seconds{collection}.

Indexer metrics: glint_documents_indexed_total{collection,operation},
glint_documents_failed_total{collection},
glint_index_write_duration_seconds{collection},
glint_indexer_queue_depth{queue}, glint_indexer_chunks_reassembled_total,
glint_indexer_gc_cycles_total.

Vector index metrics: glint_vector_index_rebuild_duration_seconds{collection,field},
glint_vector_index_size{collection,field}.

Snapshot metrics: glint_snapshot_duration_seconds, glint_snapshots_total.

# Usage

	timer := metrics.NewTimer()
	// ... perform the write ...
	timer.ObserveDurationVec(metrics.IndexWriteDuration, collectionName)

	http.Handle("/metrics", metrics.Handler())

# Design Patterns

Package Init Registration: all metrics are registered in init() so they are
ready before main() and MustRegister panics immediately on a duplicate name.

Timer Pattern: create a Timer at the start of an operation, observe it into
a histogram (or vec) once the operation completes.

Health and readiness are tracked separately by HealthChecker in this package
(process liveness / component registration) and by pkg/readiness (the
read_caught_up / write_caught_up gate that governs whether a node may serve
a given request).
*/
package metrics
