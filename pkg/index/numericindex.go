package index

import (
	"math"
	"sort"
)

// numEntry pairs a numeric field value with the document it belongs to.
type numEntry struct {
	value int64 // floats are converted via FloatToOrderedInt64 to preserve ordering
	seqID uint32
}

// FloatToOrderedInt64 converts a float64 into an int64 that sorts in the
// same order as the original float, including negative values. IEEE-754
// bit patterns already sort correctly for non-negative floats when read
// as integers; negative floats sort backwards, so every bit but the sign
// bit is flipped before conversion.
func FloatToOrderedInt64(f float64) int64 {
	bits := int64(math.Float64bits(f))
	if bits < 0 {
		bits ^= math.MaxInt64
	}
	return bits
}

// OrderedInt64ToFloat reverses FloatToOrderedInt64.
func OrderedInt64ToFloat(ordered int64) float64 {
	bits := ordered
	if bits < 0 {
		bits ^= math.MaxInt64
	}
	return math.Float64frombits(uint64(bits))
}

// NumericIndex is a sorted array of (value, seqID) pairs for one field,
// supporting range, equality, and set-membership predicates via binary
// search.
type NumericIndex struct {
	entries []numEntry
}

// NewNumericIndex returns an empty numeric index.
func NewNumericIndex() *NumericIndex {
	return &NumericIndex{}
}

// Insert adds one (value, seqID) pair, maintaining sort order by value.
func (idx *NumericIndex) Insert(value int64, seqID uint32) {
	pos := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].value >= value })
	idx.entries = append(idx.entries, numEntry{})
	copy(idx.entries[pos+1:], idx.entries[pos:])
	idx.entries[pos] = numEntry{value: value, seqID: seqID}
}

// Delete removes the first (value, seqID) pair matching exactly.
func (idx *NumericIndex) Delete(value int64, seqID uint32) {
	lo := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].value >= value })
	for i := lo; i < len(idx.entries) && idx.entries[i].value == value; i++ {
		if idx.entries[i].seqID == seqID {
			idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
			return
		}
	}
}

// Range returns the seqIDs of every entry with minInclusive <= value <=
// maxInclusive.
func (idx *NumericIndex) Range(minInclusive, maxInclusive int64) []uint32 {
	lo := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].value >= minInclusive })
	hi := sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].value > maxInclusive })
	out := make([]uint32, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, idx.entries[i].seqID)
	}
	return out
}

// Equal returns the seqIDs with value exactly equal to v.
func (idx *NumericIndex) Equal(v int64) []uint32 {
	return idx.Range(v, v)
}

// In returns the seqIDs whose value is a member of values (set-membership
// predicate).
func (idx *NumericIndex) In(values []int64) []uint32 {
	var out []uint32
	for _, v := range values {
		out = Union(out, idx.Equal(v))
	}
	return out
}
