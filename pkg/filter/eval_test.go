package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeEvaluator matches each leaf's field name to a fixed posting list, for
// exercising tree combination logic independent of any real index.
type fakeEvaluator struct {
	postings map[string][]uint32
	refs     map[string][]uint32
}

func (f *fakeEvaluator) MatchLeaf(l *Leaf) ([]uint32, error) {
	return f.postings[l.Field], nil
}

func (f *fakeEvaluator) MatchReference(l *Leaf) ([]uint32, error) {
	return f.refs[l.RefCollection], nil
}

func TestEvalIntersectsAndNode(t *testing.T) {
	n, err := Parse("a:1 && b:2", 0)
	require.NoError(t, err)

	ev := &fakeEvaluator{postings: map[string][]uint32{
		"a": {1, 2, 3},
		"b": {2, 3, 4},
	}}
	got, err := Eval(n, ev)
	require.NoError(t, err)
	require.Equal(t, []uint32{2, 3}, got)
}

func TestEvalUnionsOrNode(t *testing.T) {
	n, err := Parse("a:1 || b:2", 0)
	require.NoError(t, err)

	ev := &fakeEvaluator{postings: map[string][]uint32{
		"a": {1, 2},
		"b": {3, 4},
	}}
	got, err := Eval(n, ev)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3, 4}, got)
}

func TestEvalDelegatesReferenceLeaf(t *testing.T) {
	n, err := Parse("$authors(name:Doyle)", 0)
	require.NoError(t, err)

	ev := &fakeEvaluator{refs: map[string][]uint32{
		"authors": {7, 9},
	}}
	got, err := Eval(n, ev)
	require.NoError(t, err)
	require.Equal(t, []uint32{7, 9}, got)
}
