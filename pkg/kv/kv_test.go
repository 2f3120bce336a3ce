package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGetDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put([]byte("a"), []byte("1")))
	v, err := store.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, store.Delete([]byte("a")))
	v, err = store.Get([]byte("a"))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestBatchWriteAtomic(t *testing.T) {
	store := newTestStore(t)

	err := store.BatchWrite([]Op{
		PutOp([]byte("a"), []byte("1")),
		PutOp([]byte("b"), []byte("2")),
	})
	require.NoError(t, err)

	va, _ := store.Get([]byte("a"))
	vb, _ := store.Get([]byte("b"))
	require.Equal(t, []byte("1"), va)
	require.Equal(t, []byte("2"), vb)
}

func TestScanPrefix(t *testing.T) {
	store := newTestStore(t)

	keys := []string{"$CM_a", "$CM_b", "$CN_a", "zzz"}
	for _, k := range keys {
		require.NoError(t, store.Put([]byte(k), []byte("v")))
	}

	upper := PrefixUpperBound(PrefixCollectionMeta)
	it, err := store.Scan(PrefixCollectionMeta, upper)
	require.NoError(t, err)
	defer it.Close()

	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	require.Equal(t, []string{"$CM_a", "$CM_b"}, got)
}

func TestDeleteRange(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put([]byte("$CM_a"), []byte("v")))
	require.NoError(t, store.Put([]byte("$CM_b"), []byte("v")))
	require.NoError(t, store.Put([]byte("zzz"), []byte("v")))

	upper := PrefixUpperBound(PrefixCollectionMeta)
	require.NoError(t, store.DeleteRange(PrefixCollectionMeta, upper))

	v, _ := store.Get([]byte("$CM_a"))
	require.Nil(t, v)
	v, _ = store.Get([]byte("zzz"))
	require.NotNil(t, v)
}

func TestPrefixUpperBound(t *testing.T) {
	require.Equal(t, []byte("$CN"), PrefixUpperBound([]byte("$CM")))
	require.Nil(t, PrefixUpperBound([]byte{0xff}))
}

func TestGetUpdatesSince(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put([]byte("a"), []byte("1")))
	seqAfterFirst := store.GetLatestSeq()
	require.NoError(t, store.Put([]byte("b"), []byte("2")))

	batches, err := store.GetUpdatesSince(seqAfterFirst)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.Equal(t, []byte("b"), batches[0].Ops[0].Key)
}

func TestCheckpointAndReload(t *testing.T) {
	src := newTestStore(t)
	require.NoError(t, src.Put([]byte("a"), []byte("1")))

	snapPath := t.TempDir() + "/snap.db"
	require.NoError(t, src.Checkpoint(snapPath))

	dst := newTestStore(t)
	require.NoError(t, dst.Put([]byte("stale"), []byte("x")))
	require.NoError(t, dst.Reload(true, snapPath))

	v, err := dst.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	v, err = dst.Get([]byte("stale"))
	require.NoError(t, err)
	require.Nil(t, v)
}
