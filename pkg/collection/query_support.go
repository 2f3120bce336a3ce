package collection

import (
	"github.com/cuemby/glint/pkg/index"
	"github.com/cuemby/glint/pkg/query"
	"github.com/cuemby/glint/pkg/schema"
)

// This file adapts Collection to pkg/query's Source interface, the same
// duck-typing pattern MatchLeaf/MatchReference already use to satisfy
// filter.Evaluator without pkg/filter importing pkg/collection.
var _ query.Source = (*Collection)(nil)

// CollectionName returns this collection's name.
func (c *Collection) CollectionName() string {
	return c.Name
}

// GetDoc returns the stored document for the given user-facing id.
func (c *Collection) GetDoc(docID string) (map[string]any, error) {
	return c.Get(docID)
}

// GetDocBySeqID returns the stored document for a live sequence id.
func (c *Collection) GetDocBySeqID(seqID uint32) (map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getLocked(uint64(seqID))
}

// FieldTokens returns every indexed token for field sharing prefix. An
// empty prefix returns the field's entire vocabulary.
func (c *Collection) FieldTokens(field, prefix string) []string {
	c.mu.RLock()
	fi, ok := c.byField[field]
	c.mu.RUnlock()
	if !ok || fi.inverted == nil {
		return nil
	}
	return fi.inverted.Tokens(prefix)
}

// FieldPostings returns the posting list for one exact token.
func (c *Collection) FieldPostings(field, token string) []uint32 {
	c.mu.RLock()
	fi, ok := c.byField[field]
	c.mu.RUnlock()
	if !ok || fi.inverted == nil {
		return nil
	}
	return fi.inverted.Postings(token)
}

// FieldFacetCounts returns facet counts for field restricted to
// candidates.
func (c *Collection) FieldFacetCounts(field string, candidates []uint32) []index.FacetCount {
	c.mu.RLock()
	fi, ok := c.byField[field]
	c.mu.RUnlock()
	if !ok || fi.facet == nil {
		return nil
	}
	return fi.facet.Counts(candidates)
}

// FieldFacetValues returns the distinct facet values seqID carries for
// field, used both for facet response building and for group_by keys.
func (c *Collection) FieldFacetValues(field string, seqID uint32) []string {
	c.mu.RLock()
	fi, ok := c.byField[field]
	c.mu.RUnlock()
	if !ok || fi.facet == nil {
		return nil
	}
	return fi.facet.Values(seqID)
}

// FieldSortValue returns the stored sort-index value for field/seqID.
func (c *Collection) FieldSortValue(field string, seqID uint32) (int64, bool) {
	c.mu.RLock()
	fi, ok := c.byField[field]
	c.mu.RUnlock()
	if !ok || fi.sort == nil {
		return 0, false
	}
	return fi.sort.Get(seqID)
}

// FieldGeoPoint returns the stored (lat, lng) for field/seqID.
func (c *Collection) FieldGeoPoint(field string, seqID uint32) (lat, lng float64, ok bool) {
	c.mu.RLock()
	fi, ok2 := c.byField[field]
	c.mu.RUnlock()
	if !ok2 || fi.geo == nil {
		return 0, 0, false
	}
	return fi.geo.PointOf(seqID)
}

// VectorField reports whether field is a vector field and its dimension.
func (c *Collection) VectorField(field string) (numDim int, ok bool) {
	f, found := c.Schema.Resolve(field)
	if !found || !f.IsVector() {
		return 0, false
	}
	return f.NumDim, true
}

// VectorSearch returns the k nearest neighbors to vec in field's HNSW
// graph.
func (c *Collection) VectorSearch(field string, vec []float32, k int) []index.ScoredID {
	c.mu.RLock()
	fi, ok := c.byField[field]
	c.mu.RUnlock()
	if !ok || fi.vector == nil {
		return nil
	}
	return fi.vector.Search(vec, k)
}

// VectorOf returns the stored embedding for field/seqID.
func (c *Collection) VectorOf(field string, seqID uint32) ([]float32, bool) {
	c.mu.RLock()
	fi, ok := c.byField[field]
	c.mu.RUnlock()
	if !ok || fi.vector == nil {
		return nil, false
	}
	return fi.vector.Vector(seqID)
}

// SchemaFields returns every declared field, for callers that need to
// enumerate query_by/facet_by/group_by wildcards.
func (c *Collection) SchemaFields() []schema.Field {
	return c.Schema.Fields
}
