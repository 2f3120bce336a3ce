package collection

import (
	"sort"
	"strconv"

	"github.com/cuemby/glint/pkg/filter"
	"github.com/cuemby/glint/pkg/geocell"
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/index"
	"github.com/cuemby/glint/pkg/schema"
)

// Resolve implements filter.Resolver so filter.TypeCheck can validate a
// filter_by expression against this collection's schema.
func (c *Collection) Resolve(name string) (schema.Field, bool) {
	return c.Schema.Resolve(name)
}

// AllSeqIDs returns every live document's sequence id in ascending order,
// the universe negated comparisons (!=, not-in) subtract from.
func (c *Collection) AllSeqIDs() []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uint32, 0, len(c.live))
	for id := range c.live {
		out = append(out, uint32(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MatchLeaf implements filter.Evaluator.
func (c *Collection) MatchLeaf(leaf *filter.Leaf) ([]uint32, error) {
	if leaf.Field == filter.IDField {
		return c.matchID(leaf), nil
	}
	c.mu.RLock()
	fi, ok := c.byField[leaf.Field]
	c.mu.RUnlock()
	if !ok {
		return nil, glinterr.ClientError(leaf.Field, "field %q is not indexed", leaf.Field)
	}
	f, _ := c.Schema.Resolve(leaf.Field)
	return c.matchOp(fi, f, leaf), nil
}

// matchID resolves the "id" pseudo-field (spec.md §4.4) through the
// collection's id→seq-id table rather than a normal schema index. TypeCheck
// already rejects != / not-in before this is reached.
func (c *Collection) matchID(leaf *filter.Leaf) []uint32 {
	switch leaf.Op {
	case filter.OpIn:
		out := make([]uint32, 0, len(leaf.Value.Set))
		for _, docID := range leaf.Value.Set {
			if seqID, ok := c.DocIDToSeqID(docID); ok {
				out = append(out, uint32(seqID))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	default:
		if seqID, ok := c.DocIDToSeqID(leaf.Value.Str); ok {
			return []uint32{uint32(seqID)}
		}
		return nil
	}
}

func (c *Collection) matchOp(fi *fieldIndexes, f schema.Field, leaf *filter.Leaf) []uint32 {
	switch leaf.Op {
	case filter.OpContains:
		if f.Type != schema.TypeString {
			return c.matchExact(fi, f, leaf)
		}
		return c.matchContains(fi, leaf)
	case filter.OpEq, filter.OpExact:
		return c.matchExact(fi, f, leaf)
	case filter.OpNeq:
		return complement(c.AllSeqIDs(), c.matchExact(fi, f, leaf))
	case filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		return c.matchRange(fi, f, leaf)
	case filter.OpRange:
		if fi.numeric == nil {
			return nil
		}
		lo, hi := encodeNumBound(f, leaf.Value.RangeLo), encodeNumBound(f, leaf.Value.RangeHi)
		return fi.numeric.Range(lo, hi)
	case filter.OpIn:
		return c.matchSet(fi, f, leaf.Value.Set)
	case filter.OpNotIn:
		return complement(c.AllSeqIDs(), c.matchSet(fi, f, leaf.Value.Set))
	case filter.OpGeoRadius:
		if fi.geo == nil || leaf.Value.Geo == nil {
			return nil
		}
		return fi.geo.Radius(leaf.Value.Geo.Lat, leaf.Value.Geo.Lng, leaf.Value.Geo.RadiusKM)
	case filter.OpGeoPolygon:
		if fi.geo == nil || leaf.Value.Geo == nil {
			return nil
		}
		pts := make([]geocell.Point, len(leaf.Value.Geo.Polygon))
		for i, p := range leaf.Value.Geo.Polygon {
			pts[i] = geocell.Point{Lat: p[0], Lng: p[1]}
		}
		return fi.geo.Polygon(pts)
	}
	return nil
}

func (c *Collection) matchContains(fi *fieldIndexes, leaf *filter.Leaf) []uint32 {
	if fi.inverted == nil {
		return nil
	}
	toks := tokenize(leaf.Value.Str)
	if len(toks) == 0 {
		return nil
	}
	result := fi.inverted.Postings(toks[0])
	for _, tok := range toks[1:] {
		result = index.Intersect(result, fi.inverted.Postings(tok))
	}
	return result
}

func (c *Collection) matchExact(fi *fieldIndexes, f schema.Field, leaf *filter.Leaf) []uint32 {
	switch f.Type {
	case schema.TypeString:
		if fi.facet != nil {
			return fi.facet.Docs(leaf.Value.Str)
		}
		return c.matchContains(fi, leaf)
	case schema.TypeBool:
		if fi.numeric == nil {
			return nil
		}
		v := int64(0)
		if leaf.Value.Bool {
			v = 1
		}
		return fi.numeric.Equal(v)
	default:
		if fi.numeric == nil {
			return nil
		}
		return fi.numeric.Equal(encodeNumBound(f, leaf.Value.Num))
	}
}

func (c *Collection) matchRange(fi *fieldIndexes, f schema.Field, leaf *filter.Leaf) []uint32 {
	if fi.numeric == nil {
		return nil
	}
	v := encodeNumBound(f, leaf.Value.Num)
	switch leaf.Op {
	case filter.OpGt:
		return fi.numeric.Range(v+1, maxInt64)
	case filter.OpGte:
		return fi.numeric.Range(v, maxInt64)
	case filter.OpLt:
		return fi.numeric.Range(minInt64, v-1)
	case filter.OpLte:
		return fi.numeric.Range(minInt64, v)
	}
	return nil
}

func (c *Collection) matchSet(fi *fieldIndexes, f schema.Field, set []string) []uint32 {
	if f.Type == schema.TypeString {
		if fi.facet == nil {
			return nil
		}
		var out []uint32
		for _, s := range set {
			out = index.Union(out, fi.facet.Docs(s))
		}
		return out
	}
	if fi.numeric == nil {
		return nil
	}
	vals := make([]int64, 0, len(set))
	for _, s := range set {
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			vals = append(vals, encodeNumBound(f, n))
		}
	}
	return fi.numeric.In(vals)
}

const (
	maxInt64 = int64(1)<<63 - 1
	minInt64 = -maxInt64 - 1
)

func encodeNumBound(f schema.Field, v float64) int64 {
	if f.Type == schema.TypeFloat {
		return index.FloatToOrderedInt64(v)
	}
	return int64(v)
}

func complement(universe, exclude []uint32) []uint32 {
	excl := make(map[uint32]bool, len(exclude))
	for _, id := range exclude {
		excl[id] = true
	}
	out := make([]uint32, 0, len(universe))
	for _, id := range universe {
		if !excl[id] {
			out = append(out, id)
		}
	}
	return out
}
