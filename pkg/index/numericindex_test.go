package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumericIndexRangeAndEqual(t *testing.T) {
	idx := NewNumericIndex()
	idx.Insert(10, 1)
	idx.Insert(20, 2)
	idx.Insert(30, 3)
	idx.Insert(20, 4)

	require.ElementsMatch(t, []uint32{2, 4}, idx.Equal(20))
	require.ElementsMatch(t, []uint32{1, 2, 4}, idx.Range(10, 20))
}

func TestNumericIndexDelete(t *testing.T) {
	idx := NewNumericIndex()
	idx.Insert(10, 1)
	idx.Insert(10, 2)
	idx.Delete(10, 1)

	require.Equal(t, []uint32{2}, idx.Equal(10))
}

func TestNumericIndexIn(t *testing.T) {
	idx := NewNumericIndex()
	idx.Insert(1, 1)
	idx.Insert(2, 2)
	idx.Insert(3, 3)

	require.ElementsMatch(t, []uint32{1, 3}, idx.In([]int64{1, 3}))
}

func TestFloatToOrderedInt64PreservesOrder(t *testing.T) {
	floats := []float64{-100.5, -1.0, -0.001, 0, 0.001, 1.0, 100.5}
	var ordered []int64
	for _, f := range floats {
		ordered = append(ordered, FloatToOrderedInt64(f))
	}
	for i := 1; i < len(ordered); i++ {
		require.Less(t, ordered[i-1], ordered[i], "floats %v and %v out of order", floats[i-1], floats[i])
	}
}

func TestFloatToOrderedInt64UsableWithNumericIndex(t *testing.T) {
	idx := NewNumericIndex()
	idx.Insert(FloatToOrderedInt64(-5.5), 1)
	idx.Insert(FloatToOrderedInt64(2.25), 2)
	idx.Insert(FloatToOrderedInt64(-0.5), 3)

	got := idx.Range(FloatToOrderedInt64(-5.5), FloatToOrderedInt64(0))
	require.Equal(t, []uint32{1, 3}, got)
}
