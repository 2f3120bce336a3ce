package indexer

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/log"
	"github.com/cuemby/glint/pkg/metrics"
)

// gcInterval and gcMaxAge: once per minute, prune
// completed requests older than one hour from the in-flight map."
const (
	gcInterval = time.Minute
	gcMaxAge   = time.Hour
)

func (ix *Indexer) gcLoop() {
	defer ix.wg.Done()
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	logger := log.WithComponent("indexer")

	for {
		select {
		case <-ticker.C:
			n, err := ix.GC()
			if err != nil {
				logger.Error().Err(err).Msg("indexer GC cycle failed")
				continue
			}
			metrics.IndexerGCCycles.Inc()
			if n > 0 {
				logger.Debug().Int("pruned", n).Msg("indexer GC cycle")
			}
		case <-ix.stopCh:
			return
		}
	}
}

// GC prunes completed request metadata older than gcMaxAge from both the
// in-memory completed map and the persisted $RL_ metadata keys, and
// returns the number of requests pruned.
func (ix *Indexer) GC() (int, error) {
	ix.pauseMu.Lock()
	defer ix.pauseMu.Unlock()
	return ix.gcOnce()
}

func (ix *Indexer) gcOnce() (int, error) {
	cutoff := time.Now().Add(-gcMaxAge)
	lower := kv.PrefixRaftChunk
	upper := kv.PrefixUpperBound(lower)

	it, err := ix.store.Scan(lower, upper)
	if err != nil {
		return 0, glinterr.Fatal(err, "indexer: scan raft chunk keyspace for GC")
	}
	defer it.Close()

	var staleKeys [][]byte
	var staleReqIDs []string
	for it.Next() {
		if !it.Valid() {
			break
		}
		key := it.Key()
		if !bytes.HasSuffix(key, []byte("_meta")) {
			continue
		}
		var meta pendingRequest
		if err := json.Unmarshal(it.Value(), &meta); err != nil {
			continue
		}
		if !meta.IsComplete || meta.CompletedAt.IsZero() || meta.CompletedAt.After(cutoff) {
			continue
		}
		cp := make([]byte, len(key))
		copy(cp, key)
		staleKeys = append(staleKeys, cp)
		staleReqIDs = append(staleReqIDs, meta.ReqID)
	}

	if len(staleKeys) == 0 {
		return 0, nil
	}

	ops := make([]kv.Op, 0, len(staleKeys))
	for _, k := range staleKeys {
		ops = append(ops, kv.DeleteOp(k))
	}
	if err := ix.store.BatchWrite(ops); err != nil {
		return 0, glinterr.Fatal(err, "indexer: GC stale request metadata")
	}

	ix.completedMu.Lock()
	for _, reqID := range staleReqIDs {
		delete(ix.completed, reqID)
	}
	ix.completedMu.Unlock()

	return len(staleKeys), nil
}
