package indexer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/glint/pkg/collection"
	"github.com/cuemby/glint/pkg/events"
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/log"
	"github.com/cuemby/glint/pkg/metrics"
)

// Indexer drains replicated writes into pkg/collection, the way the
// teacher's pkg/worker drains containers into the runtime: N queues, one
// goroutine each, reading from a channel fed by Submit.
type Indexer struct {
	manager *collection.Manager
	broker  *events.Broker
	store   kv.Store

	groups *collectionGroups
	rea    *reassembler

	queues []chan *Request

	// pauseMu is the pause_mutex: Pause takes it exclusively
	// to serialize a snapshot's state read against concurrent drains,
	// which take it shared.
	pauseMu sync.RWMutex

	completedMu sync.Mutex
	completed   map[string]time.Time // reqID -> completion time, for GC

	stopCh   chan struct{}
	wg       sync.WaitGroup
	queueLen []int
	lenMu    sync.Mutex
}

// New builds an Indexer with numQueues drain goroutines, backed by
// manager for document writes and store for chunk/metadata persistence.
// broker may be nil if write-completion events aren't needed (tests).
func New(store kv.Store, manager *collection.Manager, broker *events.Broker, numQueues int) *Indexer {
	if numQueues <= 0 {
		numQueues = 4
	}
	ix := &Indexer{
		manager:   manager,
		broker:    broker,
		store:     store,
		groups:    newCollectionGroups(numQueues),
		rea:       newReassembler(store),
		queues:    make([]chan *Request, numQueues),
		completed: make(map[string]time.Time),
		stopCh:    make(chan struct{}),
		queueLen:  make([]int, numQueues),
	}
	for i := range ix.queues {
		ix.queues[i] = make(chan *Request, 1024)
	}
	return ix
}

// Start launches one drain goroutine per queue plus the once-a-minute GC
// loop.
func (ix *Indexer) Start() {
	for i := range ix.queues {
		ix.wg.Add(1)
		go ix.drain(i)
	}
	ix.wg.Add(1)
	go ix.gcLoop()
}

// Stop closes every drain goroutine and the GC loop, waiting for the
// current in-flight request on each queue to finish.
func (ix *Indexer) Stop() {
	close(ix.stopCh)
	for _, q := range ix.queues {
		close(q)
	}
	ix.wg.Wait()
}

// LinkChained tells the queue assignment that a and b participate in the
// same chained write (a reference cascade) and must always land on the
// same queue.
func (ix *Indexer) LinkChained(a, b string) {
	ix.groups.Link(a, b)
}

// Submit stages one chunk of a write and, once every chunk of numChunks
// has arrived, pushes the reassembled Request onto its target queue.
// Called from the raft apply path (chunkIndex/numChunks > 1 for a write
// split across log entries) and directly from the leader's HTTP handler
// for single-chunk writes (chunkIndex=0, numChunks=1).
func (ix *Indexer) Submit(reqID, collectionName string, action Action, chunkIndex, numChunks int, data []byte) error {
	req, complete, err := ix.rea.Stage(reqID, collectionName, action, chunkIndex, numChunks, data)
	if err != nil {
		return err
	}
	if numChunks > 1 {
		metrics.IndexerChunksReassembled.Inc()
	}
	if !complete {
		return nil
	}

	qi := ix.groups.QueueFor(collectionName)
	ix.bumpQueueLen(qi, 1)
	select {
	case ix.queues[qi] <- req:
	case <-ix.stopCh:
		return glinterr.Unavailable("indexer: shutting down")
	}
	return nil
}

func (ix *Indexer) bumpQueueLen(i, delta int) {
	ix.lenMu.Lock()
	ix.queueLen[i] += delta
	n := ix.queueLen[i]
	ix.lenMu.Unlock()
	metrics.IndexerQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(n))
}

func (ix *Indexer) drain(i int) {
	defer ix.wg.Done()
	logger := log.WithComponent("indexer")
	for req := range ix.queues[i] {
		ix.bumpQueueLen(i, -1)
		ix.pauseMu.RLock()
		err := ix.dispatch(req)
		ix.pauseMu.RUnlock()
		if err != nil {
			logger.Error().Err(err).Str("req_id", req.ReqID).Str("collection", req.Collection).Msg("dispatch failed")
			continue
		}
		ix.markCompleted(req.ReqID)
		if ix.broker != nil {
			ix.broker.Publish(&events.Event{
				Type:    events.EventDocumentIndexed,
				Message: fmt.Sprintf("%s/%s", req.Collection, req.ReqID),
			})
		}
	}
}

// dispatch applies one reassembled request to its target collection.
func (ix *Indexer) dispatch(req *Request) error {
	coll, err := ix.manager.GetCollection(req.Collection)
	if err != nil {
		return err
	}

	if req.Action == ActionDelete {
		var body struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Body, &body); err != nil {
			return glinterr.ClientError("id", "indexer: malformed delete body for %s", req.ReqID)
		}
		_, err := coll.Add(map[string]any{"id": body.ID}, collection.OpDelete)
		return err
	}

	if req.Action == ActionImport {
		return ix.dispatchImport(coll, req.Body)
	}

	var doc map[string]any
	if err := json.Unmarshal(req.Body, &doc); err != nil {
		return glinterr.ClientError("", "indexer: malformed document body for %s", req.ReqID)
	}
	_, err = coll.Add(doc, actionToOp(req.Action))
	return err
}

// dispatchImport applies body as JSON-lines, one document per line, the
// way a body spanning JSON-lines requires, rather than
// a single JSON value.
func (ix *Indexer) dispatchImport(coll *collection.Collection, body []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(line, &doc); err != nil {
			return glinterr.ClientError("", "indexer: malformed line %d in import body", lineNo)
		}
		if _, err := coll.Add(doc, collection.OpUpsert); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return glinterr.Fatal(err, "indexer: scan import body")
	}
	return nil
}

func actionToOp(a Action) collection.WriteOp {
	switch a {
	case ActionCreate:
		return collection.OpCreate
	case ActionUpdate:
		return collection.OpUpdate
	case ActionEmplace:
		return collection.OpEmplace
	default:
		return collection.OpUpsert
	}
}

func (ix *Indexer) markCompleted(reqID string) {
	ix.completedMu.Lock()
	ix.completed[reqID] = time.Now()
	ix.completedMu.Unlock()
}

// IsSkipped reports whether raftIndex was previously marked poison by
// MarkSkip, so the caller can bypass re-applying a write that crashed
// the process last time.
func (ix *Indexer) IsSkipped(raftIndex uint64) (bool, error) {
	raw, err := ix.store.Get(skipIndexKey(raftIndex))
	if err != nil {
		return false, glinterr.Fatal(err, "indexer: read skip-index marker for %d", raftIndex)
	}
	return raw != nil, nil
}

// MarkSkip persists a poison marker for raftIndex, so replay after
// restart skips re-applying the write that previously crashed the
// process after a write that previously crashed it.
func (ix *Indexer) MarkSkip(raftIndex uint64) error {
	if err := ix.store.Put(skipIndexKey(raftIndex), []byte{1}); err != nil {
		return glinterr.Fatal(err, "indexer: persist skip-index marker for %d", raftIndex)
	}
	return nil
}

func skipIndexKey(raftIndex uint64) []byte {
	return kv.CollectionKey(kv.PrefixSkipIndex, strconv.FormatUint(raftIndex, 10))
}

// Pause blocks new drains (by taking pauseMu exclusively) for the
// duration of fn, so a snapshot can read req_res_map / dependent
// counters consistently. Enqueues via Submit that arrive during Pause
// still complete (Submit takes no lock on pauseMu; only drains read-lock
// it, around dispatch), so a snapshot can block new drains without
// blocking enqueues.
func (ix *Indexer) Pause(fn func() error) error {
	ix.pauseMu.Lock()
	defer ix.pauseMu.Unlock()
	return fn()
}
