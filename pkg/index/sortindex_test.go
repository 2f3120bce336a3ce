package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortIndexSetGet(t *testing.T) {
	idx := NewSortIndex()
	idx.Set(1, 100)
	idx.Set(2, 200)

	v, ok := idx.Get(1)
	require.True(t, ok)
	require.Equal(t, int64(100), v)
	require.Equal(t, 2, idx.Len())
}

func TestSortIndexDelete(t *testing.T) {
	idx := NewSortIndex()
	idx.Set(1, 100)
	idx.Delete(1)

	_, ok := idx.Get(1)
	require.False(t, ok)
	require.Equal(t, 0, idx.Len())
}

func TestSortIndexGetMissing(t *testing.T) {
	idx := NewSortIndex()
	_, ok := idx.Get(99)
	require.False(t, ok)
}
