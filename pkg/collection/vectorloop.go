package collection

import (
	"sync"
	"time"

	"github.com/cuemby/glint/pkg/log"
	"github.com/cuemby/glint/pkg/metrics"
	"github.com/rs/zerolog"
)

// vectorRebuildInterval is how often a collection's HNSW graphs are
// rebuilt from scratch to compact the tombstones left behind by deletes.
const vectorRebuildInterval = 30 * time.Second

// VectorLoop periodically rebuilds every collection's vector indexes,
// swapping each one in atomically once the rebuild finishes.
type VectorLoop struct {
	mgr    *Manager
	logger zerolog.Logger
	stopCh chan struct{}
	mu     sync.Mutex
	ticker *time.Ticker
}

// NewVectorLoop builds a rebuild loop over mgr's collections.
func NewVectorLoop(mgr *Manager) *VectorLoop {
	return &VectorLoop{
		mgr:    mgr,
		logger: log.WithComponent("vector-rebuild"),
		stopCh: make(chan struct{}),
	}
}

// Start begins the rebuild loop.
func (l *VectorLoop) Start() {
	go l.run()
}

// Stop stops the rebuild loop.
func (l *VectorLoop) Stop() {
	close(l.stopCh)
}

func (l *VectorLoop) run() {
	ticker := time.NewTicker(vectorRebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.rebuildAll()
		case <-l.stopCh:
			return
		}
	}
}

func (l *VectorLoop) rebuildAll() {
	for _, name := range l.mgr.ListCollections() {
		c, err := l.mgr.GetCollection(name)
		if err != nil {
			continue
		}
		if err := c.rebuildVectorIndexes(); err != nil {
			l.logger.Error().Err(err).Str("collection", name).Msg("vector index rebuild failed")
			continue
		}
	}
}

// rebuildVectorIndexes swaps every vector-bearing field's HNSW graph for a
// freshly compacted one built from the same live points.
func (c *Collection) rebuildVectorIndexes() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, fi := range c.byField {
		if fi.vector == nil {
			continue
		}
		timer := metrics.NewTimer()
		fi.vector = fi.vector.Rebuild()
		timer.ObserveDurationVec(metrics.VectorIndexRebuildDuration, c.Name, name)
		metrics.VectorIndexSize.WithLabelValues(c.Name, name).Set(float64(fi.vector.Size()))
	}
	return nil
}
