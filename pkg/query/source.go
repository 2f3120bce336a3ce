package query

import (
	"github.com/cuemby/glint/pkg/filter"
	"github.com/cuemby/glint/pkg/index"
	"github.com/cuemby/glint/pkg/schema"
)

// Source is the narrow surface the executor needs from a collection. It
// embeds filter.Evaluator/Resolver so a compiled filter_by tree can be
// evaluated and type-checked without pkg/query importing pkg/collection.
type Source interface {
	filter.Evaluator
	filter.Resolver

	CollectionName() string
	DocCount() int
	AllSeqIDs() []uint32
	GetDoc(docID string) (map[string]any, error)
	GetDocBySeqID(seqID uint32) (map[string]any, error)
	SeqIDToDocID(seqID uint32) (string, bool)

	// FieldTokens returns every indexed token for field sharing prefix,
	// the candidate pool for prefix/infix/typo matching.
	FieldTokens(field, prefix string) []string
	// FieldPostings returns the posting list for one exact token.
	FieldPostings(field, token string) []uint32

	FieldFacetCounts(field string, candidates []uint32) []index.FacetCount
	FieldFacetValues(field string, seqID uint32) []string

	FieldSortValue(field string, seqID uint32) (int64, bool)
	FieldGeoPoint(field string, seqID uint32) (lat, lng float64, ok bool)

	VectorField(field string) (numDim int, ok bool)
	VectorSearch(field string, vec []float32, k int) []index.ScoredID
	VectorOf(field string, seqID uint32) ([]float32, bool)

	SchemaFields() []schema.Field
}

// SourceLookup resolves another collection by name, used for
// reference-collection sort clauses ($other_coll(field:asc)) and for
// reference filter leaves (already handled inside Collection.MatchReference,
// but the executor needs the same lookup for sort).
type SourceLookup interface {
	GetSource(name string) (Source, error)
}
