package cluster

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cuemby/glint/pkg/collection"
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/indexer"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/log"
	"github.com/cuemby/glint/pkg/metrics"
	"github.com/cuemby/glint/pkg/schema"
	"github.com/hashicorp/raft"
)

// CommandOp selects which replicated operation a Command carries.
type CommandOp string

const (
	OpCreateCollection CommandOp = "create_collection"
	OpDropCollection   CommandOp = "drop_collection"
	OpUpsertSymlink    CommandOp = "upsert_symlink"
	OpSubmitWrite      CommandOp = "submit_write"
)

// Command is one replicated raft log entry: an operation name plus its
// JSON-encoded payload, the way the teacher's manager replicates every
// cluster mutation through a single Apply path.
type Command struct {
	Op   CommandOp       `json:"op"`
	Data json.RawMessage `json:"data"`
}

// createCollectionCmd is OpCreateCollection's payload. Fields reuses
// schema.Field directly rather than a separate wire DTO, the same way
// pkg/collection's own $CM_ metadata does - both sides of the replication
// agree on the same Go types, and the external schema JSON (spec.md §6)
// is already translated into schema.Field before it reaches this layer.
type createCollectionCmd struct {
	Name                string         `json:"name"`
	Fields              []schema.Field `json:"fields"`
	DefaultSortingField string         `json:"default_sorting_field"`
	FallbackFieldType   string         `json:"fallback_field_type,omitempty"`
	EnableNestedFields  bool           `json:"enable_nested_fields,omitempty"`
	SymbolsToIndex      []rune         `json:"symbols_to_index,omitempty"`
	TokenSeparators     []rune         `json:"token_separators,omitempty"`
}

type dropCollectionCmd struct {
	Name string `json:"name"`
}

type upsertSymlinkCmd struct {
	Alias  string `json:"alias"`
	Target string `json:"target"`
}

// submitWriteCmd is OpSubmitWrite's payload: one chunk of a document
// write, staged through pkg/indexer's reassembler the same way a
// multi-chunk HTTP body would be.
type submitWriteCmd struct {
	ReqID      string         `json:"req_id"`
	Collection string         `json:"collection"`
	Action     indexer.Action `json:"action"`
	ChunkIndex int            `json:"chunk_index"`
	NumChunks  int            `json:"num_chunks"`
	Body       []byte         `json:"body"`
}

// EncodeCommand marshals op/data into the bytes a raft.Log carries.
func EncodeCommand(op CommandOp, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, glinterr.Fatal(err, "cluster: marshal %s payload", op)
	}
	cmd := Command{Op: op, Data: data}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return nil, glinterr.Fatal(err, "cluster: marshal command envelope")
	}
	return raw, nil
}

// StateMachine implements raft.FSM, applying replicated collection and
// document writes to pkg/collection and pkg/indexer. Adapted from the
// teacher's WarrenFSM: a single Apply dispatch keyed by Command.Op, and a
// Snapshot/Restore pair that serializes the full in-memory state rather
// than replaying the raft log from index zero.
type StateMachine struct {
	mu sync.RWMutex

	store   kv.Store
	manager *collection.Manager
	indexer *indexer.Indexer

	dataDir string
}

// NewStateMachine builds a StateMachine over the given store/manager/
// indexer. dataDir is where Snapshot stages its checkpoint file before
// Persist streams it into raft's snapshot sink.
func NewStateMachine(store kv.Store, manager *collection.Manager, ix *indexer.Indexer, dataDir string) *StateMachine {
	return &StateMachine{store: store, manager: manager, indexer: ix, dataDir: dataDir}
}

// Apply decodes one raft log entry and dispatches it. A Fatal-kind error
// poisons the index so replay after a restart skips it instead of
// crashing the process again, per spec.md §7/§9's skip-writes behavior.
func (s *StateMachine) Apply(l *raft.Log) interface{} {
	logger := log.WithComponent("raft")
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RaftApplyDuration)

	if skipped, err := s.indexer.IsSkipped(l.Index); err != nil {
		logger.Error().Err(err).Uint64("index", l.Index).Msg("check skip-index marker")
		return err
	} else if skipped {
		logger.Warn().Uint64("index", l.Index).Msg("skipping poisoned log entry")
		return nil
	}

	var cmd Command
	if err := json.Unmarshal(l.Data, &cmd); err != nil {
		if markErr := s.indexer.MarkSkip(l.Index); markErr != nil {
			logger.Error().Err(markErr).Uint64("index", l.Index).Msg("mark skip-index")
		}
		return glinterr.Fatal(err, "cluster: decode command at index %d", l.Index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.dispatch(cmd)
	if glinterr.KindOf(err) == glinterr.KindFatal {
		if markErr := s.indexer.MarkSkip(l.Index); markErr != nil {
			logger.Error().Err(markErr).Uint64("index", l.Index).Msg("mark skip-index")
		}
	}
	return err
}

func (s *StateMachine) dispatch(cmd Command) error {
	switch cmd.Op {
	case OpCreateCollection:
		var payload createCollectionCmd
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return glinterr.Fatal(err, "cluster: decode create_collection payload")
		}
		sch, err := schema.New(payload.Fields, payload.DefaultSortingField)
		if err != nil {
			return err
		}
		sch.EnableNestedFields = payload.EnableNestedFields
		sch.SymbolsToIndex = payload.SymbolsToIndex
		sch.TokenSeparators = payload.TokenSeparators
		if payload.FallbackFieldType != "" {
			t, ferr := schema.ParseFieldType(payload.FallbackFieldType)
			if ferr != nil {
				return ferr
			}
			sch.FallbackFieldType = t
			sch.HasFallbackType = true
		}
		_, err = s.manager.CreateCollection(payload.Name, sch)
		return err

	case OpDropCollection:
		var payload dropCollectionCmd
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return glinterr.Fatal(err, "cluster: decode drop_collection payload")
		}
		return s.manager.DropCollection(payload.Name)

	case OpUpsertSymlink:
		var payload upsertSymlinkCmd
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return glinterr.Fatal(err, "cluster: decode upsert_symlink payload")
		}
		return s.manager.UpsertSymlink(payload.Alias, payload.Target)

	case OpSubmitWrite:
		var payload submitWriteCmd
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return glinterr.Fatal(err, "cluster: decode submit_write payload")
		}
		return s.indexer.Submit(payload.ReqID, payload.Collection, payload.Action, payload.ChunkIndex, payload.NumChunks, payload.Body)

	default:
		return glinterr.Fatal(fmt.Errorf("unknown op %q", cmd.Op), "cluster: dispatch")
	}
}

// snapshotManifest is the header Persist writes ahead of the checkpoint
// file's bytes, recording how to split the stream back apart on Restore.
type snapshotManifest struct {
	DBSize int `json:"db_size"`
}

// Snapshot quiesces the indexer (so no write lands between the checkpoint
// read and the manifest being built), checkpoints pkg/kv to a temp file
// under dataDir, and returns an FSMSnapshot that streams manifest+db
// bytes into raft's sink when Persist is called.
func (s *StateMachine) Snapshot() (raft.FSMSnapshot, error) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.SnapshotDuration)
		metrics.SnapshotsTotal.Inc()
	}()

	tmp, err := os.CreateTemp(s.dataDir, "glint-snapshot-*.db")
	if err != nil {
		return nil, glinterr.Fatal(err, "cluster: create snapshot temp file")
	}
	tmpPath := tmp.Name()
	tmp.Close()

	err = s.indexer.Pause(func() error {
		return s.store.Checkpoint(tmpPath)
	})
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	return &fsmSnapshot{path: tmpPath}, nil
}

// fsmSnapshot implements raft.FSMSnapshot, streaming a checkpoint file's
// contents into the sink raft hands it, framed by a small JSON manifest
// so Restore knows how many bytes belong to the database.
type fsmSnapshot struct {
	path string
}

func (f *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	defer os.Remove(f.path)

	db, err := os.Open(f.path)
	if err != nil {
		sink.Cancel()
		return err
	}
	defer db.Close()

	info, err := db.Stat()
	if err != nil {
		sink.Cancel()
		return err
	}

	manifest := snapshotManifest{DBSize: int(info.Size())}
	enc := json.NewEncoder(sink)
	if err := enc.Encode(manifest); err != nil {
		sink.Cancel()
		return err
	}

	if _, err := io.Copy(sink, db); err != nil {
		sink.Cancel()
		return err
	}

	return sink.Close()
}

func (f *fsmSnapshot) Release() {}

// Restore replaces the live store's contents with the snapshot's
// checkpoint and rebuilds every in-memory collection/index from it, the
// way pkg/collection.Manager.LoadAll already does after a cold start.
func (s *StateMachine) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	dec := json.NewDecoder(rc)
	var manifest snapshotManifest
	if err := dec.Decode(&manifest); err != nil {
		return glinterr.Fatal(err, "cluster: decode snapshot manifest")
	}

	tmp, err := os.CreateTemp(s.dataDir, "glint-restore-*.db")
	if err != nil {
		return glinterr.Fatal(err, "cluster: create restore temp file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	// json.Decoder may have buffered bytes past the manifest; drain
	// whatever it already read before copying the rest of the stream.
	if _, err := io.Copy(tmp, io.MultiReader(dec.Buffered(), rc)); err != nil {
		tmp.Close()
		return glinterr.Fatal(err, "cluster: write restore temp file")
	}
	tmp.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Reload(true, tmpPath); err != nil {
		return glinterr.Fatal(err, "cluster: reload store from snapshot")
	}
	if err := s.manager.LoadAll(); err != nil {
		return glinterr.Fatal(err, "cluster: rebuild collections after restore")
	}
	return nil
}

// Collection and sequence id counters (pkg/idalloc) persist as ordinary
// keys in the same store the checkpoint/reload cycle above already
// covers, so no separate component-state section is needed in the
// manifest beyond the database bytes themselves.
