package indexer

import "time"

// Action selects which write-pipeline operation a request dispatches into
// pkg/collection once fully reassembled.
type Action int

const (
	ActionCreate Action = iota
	ActionUpsert
	ActionUpdate
	ActionEmplace
	ActionDelete
	// ActionImport dispatches Body as JSON-lines, one document per line,
	// each applied with Upsert semantics unless the line carries its own
	// action override (not modeled here; spec §4.3's import endpoint is
	// single-action per request).
	ActionImport
)

// Request is one logical write submitted to the indexer, after every
// chunk belonging to it has been reassembled. ReqID is stable across
// retries and across a snapshot/resume cycle.
type Request struct {
	ReqID      string    `json:"req_id"`
	Collection string    `json:"collection"`
	Action     Action    `json:"action"`
	Body       []byte    `json:"body"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// pendingRequest tracks one in-flight, possibly-partial request: the
// chunk-reassembly state (num_chunks,
// next_chunk_index, prev_req_body, is_complete) plus the bookkeeping the
// GC pass and snapshot/resume need.
type pendingRequest struct {
	ReqID         string    `json:"req_id"`
	Collection    string    `json:"collection"`
	Action        Action    `json:"action"`
	NumChunks     int       `json:"num_chunks"`
	NextChunkIdx  int       `json:"next_chunk_index"`
	PrevReqBody   []byte    `json:"prev_req_body"`
	IsComplete    bool      `json:"is_complete"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
}
