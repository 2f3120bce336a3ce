package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorIndexSearchFindsExactMatch(t *testing.T) {
	idx := NewVectorIndex(CosineDistance, 8, 50)
	idx.Insert(1, []float32{1, 0, 0})
	idx.Insert(2, []float32{0, 1, 0})
	idx.Insert(3, []float32{0, 0, 1})

	got := idx.Search([]float32{1, 0, 0}, 1)
	require.Len(t, got, 1)
	require.Equal(t, uint32(1), got[0].ID)
}

func TestVectorIndexSearchOrdersByDistance(t *testing.T) {
	idx := NewVectorIndex(CosineDistance, 8, 50)
	idx.Insert(1, []float32{1, 0, 0})
	idx.Insert(2, []float32{0.9, 0.1, 0})
	idx.Insert(3, []float32{0, 1, 0})

	got := idx.Search([]float32{1, 0, 0}, 3)
	require.Len(t, got, 3)
	require.Equal(t, uint32(1), got[0].ID)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
}

func TestVectorIndexDeleteRemovesFromSearch(t *testing.T) {
	idx := NewVectorIndex(CosineDistance, 8, 50)
	idx.Insert(1, []float32{1, 0, 0})
	idx.Insert(2, []float32{0, 1, 0})
	idx.Delete(2)

	require.Equal(t, 1, idx.Size())
}

func TestVectorIndexEmptySearchReturnsNil(t *testing.T) {
	idx := NewVectorIndex(CosineDistance, 8, 50)
	require.Nil(t, idx.Search([]float32{1, 2, 3}, 5))
}

func TestVectorIndexRebuildPreservesLivePoints(t *testing.T) {
	idx := NewVectorIndex(CosineDistance, 8, 50)
	for i := uint32(0); i < 20; i++ {
		idx.Insert(i, []float32{float32(i), 1, 0})
	}
	rebuilt := idx.Rebuild()
	require.Equal(t, 20, rebuilt.Size())

	got := rebuilt.Search([]float32{5, 1, 0}, 1)
	require.Len(t, got, 1)
}

func TestInnerProductDistanceFavorsLargerDot(t *testing.T) {
	d1 := InnerProductDistance([]float32{1, 1}, []float32{1, 1})
	d2 := InnerProductDistance([]float32{1, 1}, []float32{0, 0})
	require.Less(t, d1, d2)
}
