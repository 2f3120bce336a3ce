package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvertedIndexInsertAndPostings(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Insert("shoe", 1)
	idx.Insert("shoe", 3)
	idx.Insert("shoe", 2)
	idx.Insert("shoe", 2)

	require.Equal(t, []uint32{1, 2, 3}, idx.Postings("shoe"))
}

func TestInvertedIndexDelete(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Insert("shoe", 1)
	idx.Insert("shoe", 2)
	idx.Delete("shoe", 1)

	require.Equal(t, []uint32{2}, idx.Postings("shoe"))
}

func TestInvertedIndexDeleteLastPostingRemovesToken(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Insert("shoe", 1)
	idx.Delete("shoe", 1)

	require.Nil(t, idx.Postings("shoe"))
}

func TestInvertedIndexTokensPrefix(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Insert("run", 1)
	idx.Insert("running", 1)
	idx.Insert("runner", 1)
	idx.Insert("walk", 1)

	toks := idx.Tokens("run")
	require.Equal(t, []string{"run", "runner", "running"}, toks)
}

func TestIntersectAndUnion(t *testing.T) {
	a := []uint32{1, 2, 3, 5}
	b := []uint32{2, 3, 4}

	require.Equal(t, []uint32{2, 3}, Intersect(a, b))
	require.Equal(t, []uint32{1, 2, 3, 4, 5}, Union(a, b))
}
