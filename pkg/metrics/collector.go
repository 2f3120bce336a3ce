package metrics

import "time"

// CollectionSource is the narrow view of pkg/collection.Manager the
// collector needs. Defined here (rather than imported) so pkg/metrics
// stays a leaf package: pkg/collection and pkg/cluster both depend on
// pkg/metrics already, so a dependency in the other direction would cycle.
type CollectionSource interface {
	ListCollections() []string
	CollectionDocCount(name string) int
}

// RaftSource is the narrow view of pkg/cluster.Node the collector needs,
// for the same reason.
type RaftSource interface {
	IsLeader() bool
	RaftCounters() (lastLogIndex, appliedIndex uint64, peers int)
}

// Collector periodically refreshes the gauges that reflect current state
// rather than a single event (collections total, documents per collection,
// raft leadership/log position), grounded on the teacher's
// collector.go ticker-driven refresh loop.
type Collector struct {
	collections CollectionSource
	raft        RaftSource
	stopCh      chan struct{}
}

// NewCollector builds a Collector. raft may be nil for a single-process
// setup with no cluster.Node wired yet, in which case raft gauges are
// simply never updated.
func NewCollector(collections CollectionSource, raft RaftSource) *Collector {
	return &Collector{
		collections: collections,
		raft:        raft,
		stopCh:      make(chan struct{}),
	}
}

// Start begins collecting on a 15s cadence, matching the teacher's
// collector tick interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectCollectionMetrics()
	c.collectRaftMetrics()
}

func (c *Collector) collectCollectionMetrics() {
	if c.collections == nil {
		return
	}
	names := c.collections.ListCollections()
	CollectionsTotal.Set(float64(len(names)))
	for _, name := range names {
		DocumentsTotal.WithLabelValues(name).Set(float64(c.collections.CollectionDocCount(name)))
	}
}

func (c *Collector) collectRaftMetrics() {
	if c.raft == nil {
		return
	}
	if c.raft.IsLeader() {
		RaftLeader.Set(1)
	} else {
		RaftLeader.Set(0)
	}
	lastIndex, appliedIndex, peers := c.raft.RaftCounters()
	RaftLogIndex.Set(float64(lastIndex))
	RaftAppliedIndex.Set(float64(appliedIndex))
	RaftPeers.Set(float64(peers))
}
