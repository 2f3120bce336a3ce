package index

// SortIndex is a columnar store of one sortable field's value per
// document, keyed by seqID for O(1) lookup during the final sort pass
// (the executor resolves _text_match/_eval/geopoint-distance values
// separately and only uses this for declared sort fields).
type SortIndex struct {
	values map[uint32]int64
}

// NewSortIndex returns an empty sort index.
func NewSortIndex() *SortIndex {
	return &SortIndex{values: make(map[uint32]int64)}
}

// Set stores value for seqID, overwriting any previous value.
func (idx *SortIndex) Set(seqID uint32, value int64) {
	idx.values[seqID] = value
}

// Delete removes seqID's stored value.
func (idx *SortIndex) Delete(seqID uint32) {
	delete(idx.values, seqID)
}

// Get returns seqID's stored value and whether one was set.
func (idx *SortIndex) Get(seqID uint32) (int64, bool) {
	v, ok := idx.values[seqID]
	return v, ok
}

// Len returns the number of documents with a stored value.
func (idx *SortIndex) Len() int {
	return len(idx.values)
}
