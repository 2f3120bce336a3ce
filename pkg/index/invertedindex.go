// Package index implements the per-field index structures a collection
// maintains: inverted text postings, sorted numeric arrays, geo cell
// buckets, an HNSW vector graph, facet counters, and columnar sort
// storage. None of these has a reusable library anywhere in the retrieval
// pack (see DESIGN.md), so every structure here is hand-rolled against the
// standard library.
package index

import "sort"

// InvertedIndex maps a token to the sorted, deduplicated list of document
// sequence ids it appears in, one per indexed string field.
type InvertedIndex struct {
	postings map[string][]uint32
}

// NewInvertedIndex returns an empty inverted index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{postings: make(map[string][]uint32)}
}

// Insert records that seqID contains token. Idempotent: reinserting the
// same (token, seqID) pair is a no-op.
func (idx *InvertedIndex) Insert(token string, seqID uint32) {
	list := idx.postings[token]
	pos := sort.Search(len(list), func(i int) bool { return list[i] >= seqID })
	if pos < len(list) && list[pos] == seqID {
		return
	}
	list = append(list, 0)
	copy(list[pos+1:], list[pos:])
	list[pos] = seqID
	idx.postings[token] = list
}

// Delete removes seqID from token's posting list.
func (idx *InvertedIndex) Delete(token string, seqID uint32) {
	list := idx.postings[token]
	pos := sort.Search(len(list), func(i int) bool { return list[i] >= seqID })
	if pos >= len(list) || list[pos] != seqID {
		return
	}
	idx.postings[token] = append(list[:pos], list[pos+1:]...)
	if len(idx.postings[token]) == 0 {
		delete(idx.postings, token)
	}
}

// Postings returns the posting list for token, or nil if the token is
// absent.
func (idx *InvertedIndex) Postings(token string) []uint32 {
	return idx.postings[token]
}

// Tokens returns every token sharing prefix, used for prefix/infix
// matching and typo candidate generation.
func (idx *InvertedIndex) Tokens(prefix string) []string {
	var out []string
	for tok := range idx.postings {
		if len(prefix) == 0 || (len(tok) >= len(prefix) && tok[:len(prefix)] == prefix) {
			out = append(out, tok)
		}
	}
	sort.Strings(out)
	return out
}

// Intersect returns the sorted intersection of two posting lists.
func Intersect(a, b []uint32) []uint32 {
	var out []uint32
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// Union returns the sorted union of two posting lists.
func Union(a, b []uint32) []uint32 {
	var out []uint32
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
