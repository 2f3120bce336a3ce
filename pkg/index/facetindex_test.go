package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFacetIndexDocsAndValues(t *testing.T) {
	idx := NewFacetIndex()
	idx.Insert(1, "red")
	idx.Insert(2, "red")
	idx.Insert(2, "blue")
	idx.Insert(3, "blue")

	require.ElementsMatch(t, []uint32{1, 2}, idx.Docs("red"))
	require.ElementsMatch(t, []string{"red", "blue"}, idx.Values(2))
}

func TestFacetIndexDelete(t *testing.T) {
	idx := NewFacetIndex()
	idx.Insert(1, "red")
	idx.Insert(1, "blue")
	idx.Delete(1)

	require.Empty(t, idx.Docs("red"))
	require.Empty(t, idx.Values(1))
}

func TestFacetIndexCountsRestrictedToCandidates(t *testing.T) {
	idx := NewFacetIndex()
	idx.Insert(1, "red")
	idx.Insert(2, "red")
	idx.Insert(3, "blue")

	counts := idx.Counts([]uint32{1, 3})
	require.Equal(t, []FacetCount{
		{Value: "blue", Count: 1},
		{Value: "red", Count: 1},
	}, counts)
}

func TestFacetIndexCountsOrderedByDescendingCount(t *testing.T) {
	idx := NewFacetIndex()
	idx.Insert(1, "red")
	idx.Insert(2, "red")
	idx.Insert(3, "blue")

	counts := idx.Counts([]uint32{1, 2, 3})
	require.Equal(t, "red", counts[0].Value)
	require.Equal(t, 2, counts[0].Count)
}
