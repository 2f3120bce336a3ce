package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Collection metrics
	CollectionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glint_collections_total",
			Help: "Total number of collections currently loaded",
		},
	)

	DocumentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "glint_documents_total",
			Help: "Total number of documents by collection",
		},
		[]string{"collection"},
	)

	// Raft metrics
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glint_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glint_raft_peers_total",
			Help: "Total number of Raft peers in the cluster",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glint_raft_log_index",
			Help: "Current Raft log index",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "glint_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glint_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Search API metrics
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glint_search_requests_total",
			Help: "Total number of search requests by collection and status",
		},
		[]string{"collection", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glint_search_request_duration_seconds",
			Help:    "Search request duration in seconds by collection",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	// Write / indexer metrics
	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glint_documents_indexed_total",
			Help: "Total number of documents written by collection and operation",
		},
		[]string{"collection", "operation"},
	)

	DocumentsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glint_documents_failed_total",
			Help: "Total number of document writes that failed validation or indexing",
		},
		[]string{"collection"},
	)

	IndexWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glint_index_write_duration_seconds",
			Help:    "Time taken to apply a batch of documents to a collection's indexes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	IndexerQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "glint_indexer_queue_depth",
			Help: "Number of write requests currently queued per indexer queue",
		},
		[]string{"queue"},
	)

	IndexerChunksReassembled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glint_indexer_chunks_reassembled_total",
			Help: "Total number of multi-chunk write requests fully reassembled",
		},
	)

	IndexerGCCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glint_indexer_gc_cycles_total",
			Help: "Total number of indexer garbage-collection cycles completed",
		},
	)

	// Vector index metrics
	VectorIndexRebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glint_vector_index_rebuild_duration_seconds",
			Help:    "Time taken to rebuild an HNSW vector index by collection and field",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"collection", "field"},
	)

	VectorIndexSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "glint_vector_index_size",
			Help: "Number of vectors currently indexed by collection and field",
		},
		[]string{"collection", "field"},
	)

	// Snapshot metrics
	SnapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "glint_snapshot_duration_seconds",
			Help:    "Time taken to produce a Raft snapshot in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "glint_snapshots_total",
			Help: "Total number of Raft snapshots completed",
		},
	)
)

func init() {
	prometheus.MustRegister(CollectionsTotal)
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(DocumentsIndexedTotal)
	prometheus.MustRegister(DocumentsFailedTotal)
	prometheus.MustRegister(IndexWriteDuration)
	prometheus.MustRegister(IndexerQueueDepth)
	prometheus.MustRegister(IndexerChunksReassembled)
	prometheus.MustRegister(IndexerGCCycles)
	prometheus.MustRegister(VectorIndexRebuildDuration)
	prometheus.MustRegister(VectorIndexSize)
	prometheus.MustRegister(SnapshotDuration)
	prometheus.MustRegister(SnapshotsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
