package cluster

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/cuemby/glint/pkg/collection"
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/indexer"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/schema"
	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/require"
)

func newTestFSM(t *testing.T) (*StateMachine, *collection.Manager, *indexer.Indexer) {
	t.Helper()
	store, err := kv.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	manager := collection.NewManager(store)
	ix := indexer.New(store, manager, nil, 1)
	ix.Start()
	t.Cleanup(ix.Stop)

	sm := NewStateMachine(store, manager, ix, t.TempDir())
	return sm, manager, ix
}

func booksFields() []schema.Field {
	return []schema.Field{
		{Name: "title", Type: schema.TypeString, Index: true},
		{Name: "price", Type: schema.TypeFloat, Index: true, Sort: true},
	}
}

func TestStateMachineApplyCreateCollection(t *testing.T) {
	sm, manager, _ := newTestFSM(t)

	raw, err := EncodeCommand(OpCreateCollection, createCollectionCmd{
		Name: "books", Fields: booksFields(), DefaultSortingField: "price",
	})
	require.NoError(t, err)

	resp := sm.Apply(&raft.Log{Index: 1, Data: raw})
	require.Nil(t, resp)

	c, err := manager.GetCollection("books")
	require.NoError(t, err)
	require.Equal(t, "books", c.Name)
}

func TestStateMachineApplySubmitWriteIndexesDocument(t *testing.T) {
	sm, manager, _ := newTestFSM(t)

	createRaw, err := EncodeCommand(OpCreateCollection, createCollectionCmd{
		Name: "books", Fields: booksFields(), DefaultSortingField: "price",
	})
	require.NoError(t, err)
	require.Nil(t, sm.Apply(&raft.Log{Index: 1, Data: createRaw}))

	writeRaw, err := EncodeCommand(OpSubmitWrite, submitWriteCmd{
		ReqID:      "req-1",
		Collection: "books",
		Action:      indexer.ActionCreate,
		ChunkIndex:  0,
		NumChunks:   1,
		Body:        []byte(`{"id":"b1","title":"Dune","price":9.99}`),
	})
	require.NoError(t, err)
	require.Nil(t, sm.Apply(&raft.Log{Index: 2, Data: writeRaw}))

	require.Eventually(t, func() bool {
		c, err := manager.GetCollection("books")
		return err == nil && c.DocCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStateMachineApplySkipsPoisonedIndex(t *testing.T) {
	sm, _, ix := newTestFSM(t)

	require.NoError(t, ix.MarkSkip(5))
	resp := sm.Apply(&raft.Log{Index: 5, Data: []byte("not valid json")})
	require.Nil(t, resp)
}

func TestStateMachineApplyUnknownOpMarksSkip(t *testing.T) {
	sm, _, ix := newTestFSM(t)

	raw, err := EncodeCommand(CommandOp("bogus"), struct{}{})
	require.NoError(t, err)

	resp := sm.Apply(&raft.Log{Index: 7, Data: raw})
	respErr, ok := resp.(error)
	require.True(t, ok)
	require.Equal(t, glinterr.KindFatal, glinterr.KindOf(respErr))

	skipped, err := ix.IsSkipped(7)
	require.NoError(t, err)
	require.True(t, skipped)
}

// fakeSink is a minimal raft.SnapshotSink for exercising Persist/Restore
// without a real raft.FileSnapshotStore.
type fakeSink struct {
	bytes.Buffer
	cancelled bool
}

func (f *fakeSink) ID() string     { return "fake-snapshot" }
func (f *fakeSink) Cancel() error  { f.cancelled = true; return nil }
func (f *fakeSink) Close() error   { return nil }

func TestStateMachineSnapshotRestoreRoundTrip(t *testing.T) {
	sm, manager, _ := newTestFSM(t)

	createRaw, err := EncodeCommand(OpCreateCollection, createCollectionCmd{
		Name: "books", Fields: booksFields(), DefaultSortingField: "price",
	})
	require.NoError(t, err)
	require.Nil(t, sm.Apply(&raft.Log{Index: 1, Data: createRaw}))

	writeRaw, err := EncodeCommand(OpSubmitWrite, submitWriteCmd{
		ReqID: "req-1", Collection: "books",
		Action: indexer.ActionCreate, ChunkIndex: 0, NumChunks: 1,
		Body: []byte(`{"id":"b1","title":"Dune","price":9.99}`),
	})
	require.NoError(t, err)
	require.Nil(t, sm.Apply(&raft.Log{Index: 2, Data: writeRaw}))

	require.Eventually(t, func() bool {
		c, err := manager.GetCollection("books")
		return err == nil && c.DocCount() == 1
	}, time.Second, 10*time.Millisecond)

	snap, err := sm.Snapshot()
	require.NoError(t, err)

	sink := &fakeSink{}
	require.NoError(t, snap.Persist(sink))
	snap.Release()

	sm2, manager2, _ := newTestFSM(t)
	require.NoError(t, sm2.Restore(io.NopCloser(bytes.NewReader(sink.Bytes()))))

	c, err := manager2.GetCollection("books")
	require.NoError(t, err)
	require.Equal(t, 1, c.DocCount())
}
