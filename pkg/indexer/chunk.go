package indexer

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/kv"
)

// chunkKey builds the $RL_<req_id>_<chunk_index> key a raw chunk is
// staged under.
func chunkKey(reqID string, chunkIndex int) []byte {
	return kv.CollectionKey(kv.PrefixRaftChunk, fmt.Sprintf("%s_%d", reqID, chunkIndex))
}

// metaKey builds the key the request's reassembly metadata (num_chunks,
// next_chunk_index, is_complete, ...) is persisted under, distinguished
// from a chunk index by the "_meta" suffix no integer chunk index can
// collide with.
func metaKey(reqID string) []byte {
	return kv.CollectionKey(kv.PrefixRaftChunk, reqID+"_meta")
}

// reassembler stitches multi-chunk writes back into one Request,
// persisting in-flight state under $RL_ so a crash mid-reassembly can
// resume after restart instead of losing the partial write.
type reassembler struct {
	mu    sync.Mutex
	store kv.Store
}

func newReassembler(store kv.Store) *reassembler {
	return &reassembler{store: store}
}

// Stage records one chunk of reqID. When chunkIndex is the last of
// numChunks, it reassembles the full body, clears the staged chunks, and
// returns the completed Request. Otherwise it returns (nil, false, nil)
// and the caller should wait for the remaining chunks.
func (r *reassembler) Stage(reqID, collection string, action Action, chunkIndex, numChunks int, data []byte) (*Request, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Put(chunkKey(reqID, chunkIndex), data); err != nil {
		return nil, false, glinterr.Fatal(err, "indexer: stage chunk %d of %s", chunkIndex, reqID)
	}

	meta := &pendingRequest{
		ReqID:        reqID,
		Collection:   collection,
		Action:       action,
		NumChunks:    numChunks,
		NextChunkIdx: chunkIndex + 1,
		EnqueuedAt:   time.Now(),
	}
	if existing, err := r.loadMeta(reqID); err == nil && existing != nil {
		meta.EnqueuedAt = existing.EnqueuedAt
		if existing.NextChunkIdx > meta.NextChunkIdx {
			meta.NextChunkIdx = existing.NextChunkIdx
		}
	}
	meta.IsComplete = meta.NextChunkIdx >= numChunks

	if !meta.IsComplete {
		if err := r.saveMeta(meta); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	body, err := r.concatChunks(reqID, numChunks)
	if err != nil {
		return nil, false, err
	}
	meta.CompletedAt = time.Now()
	if err := r.saveMeta(meta); err != nil {
		return nil, false, err
	}
	if err := r.clearChunks(reqID, numChunks); err != nil {
		return nil, false, err
	}

	return &Request{
		ReqID:      reqID,
		Collection: collection,
		Action:     action,
		Body:       body,
		EnqueuedAt: meta.EnqueuedAt,
	}, true, nil
}

func (r *reassembler) concatChunks(reqID string, numChunks int) ([]byte, error) {
	var body []byte
	for i := 0; i < numChunks; i++ {
		chunk, err := r.store.Get(chunkKey(reqID, i))
		if err != nil {
			return nil, glinterr.Fatal(err, "indexer: read chunk %d of %s", i, reqID)
		}
		body = append(body, chunk...)
	}
	return body, nil
}

func (r *reassembler) clearChunks(reqID string, numChunks int) error {
	ops := make([]kv.Op, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		ops = append(ops, kv.DeleteOp(chunkKey(reqID, i)))
	}
	if err := r.store.BatchWrite(ops); err != nil {
		return glinterr.Fatal(err, "indexer: clear staged chunks for %s", reqID)
	}
	return nil
}

func (r *reassembler) loadMeta(reqID string) (*pendingRequest, error) {
	raw, err := r.store.Get(metaKey(reqID))
	if err != nil || raw == nil {
		return nil, err
	}
	var meta pendingRequest
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, glinterr.Fatal(err, "indexer: decode pending request %s", reqID)
	}
	return &meta, nil
}

func (r *reassembler) saveMeta(meta *pendingRequest) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return glinterr.Fatal(err, "indexer: encode pending request %s", meta.ReqID)
	}
	if err := r.store.Put(metaKey(meta.ReqID), raw); err != nil {
		return glinterr.Fatal(err, "indexer: persist pending request %s", meta.ReqID)
	}
	return nil
}
