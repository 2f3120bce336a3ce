package idalloc

import (
	"testing"

	"github.com/cuemby/glint/pkg/kv"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) kv.Store {
	t.Helper()
	store, err := kv.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCollectionIDAllocatorMonotonic(t *testing.T) {
	store := newStore(t)
	alloc := NewCollectionIDAllocator(store)

	first, err := alloc.Next()
	require.NoError(t, err)
	require.Equal(t, uint32(1), first)

	second, err := alloc.Next()
	require.NoError(t, err)
	require.Equal(t, uint32(2), second)

	peeked, err := alloc.Peek()
	require.NoError(t, err)
	require.Equal(t, uint32(2), peeked)
}

func TestSeqIDAllocatorPerCollection(t *testing.T) {
	store := newStore(t)
	products := NewSeqIDAllocator(store, "products")
	reviews := NewSeqIDAllocator(store, "reviews")

	p1, err := products.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(1), p1)

	r1, err := reviews.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(1), r1)

	p2, err := products.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(2), p2)
}

func TestSeqIDAllocatorSurvivesReopen(t *testing.T) {
	store := newStore(t)
	alloc := NewSeqIDAllocator(store, "products")
	_, err := alloc.Next()
	require.NoError(t, err)
	_, err = alloc.Next()
	require.NoError(t, err)

	reopened := NewSeqIDAllocator(store, "products")
	peeked, err := reopened.Peek()
	require.NoError(t, err)
	require.Equal(t, uint64(2), peeked)
}
