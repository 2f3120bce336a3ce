package collection

import (
	"testing"

	"github.com/cuemby/glint/pkg/query"
	"github.com/cuemby/glint/pkg/schema"
	"github.com/stretchr/testify/require"
)

// TestDoSearchCreateIndexSearch is spec.md §8 scenario 1: create, ingest,
// search by a single query_by field.
func TestDoSearchCreateIndexSearch(t *testing.T) {
	m := NewManager(newTestStore(t))
	_, err := m.CreateCollection("books", booksSchema(t))
	require.NoError(t, err)
	c, err := m.GetCollection("books")
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "0", "title": "Sherlock Holmes", "author": "Doyle", "price": 100.0, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	params := query.DefaultParams()
	params.Q = "sherlock"
	params.QueryBy = []string{"title"}

	res, err := m.DoSearch("books", params, query.Params{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Found)
	require.Len(t, res.Hits, 1)
	require.Equal(t, "0", res.Hits[0].Document["id"])
}

// TestDoSearchIncrementViaUpdate is spec.md §8 scenario 2: an
// "$operations":{"increment":...} update is reflected in a later
// filter_by search on the incremented field.
func TestDoSearchIncrementViaUpdate(t *testing.T) {
	m := NewManager(newTestStore(t))
	_, err := m.CreateCollection("books", booksSchema(t))
	require.NoError(t, err)
	c, err := m.GetCollection("books")
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "0", "title": "Sherlock Holmes", "author": "Doyle", "price": 100.0, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	_, err = c.Add(map[string]any{
		"id":          "0",
		"$operations": map[string]any{"increment": map[string]any{"price": 1.0}},
	}, OpUpdate)
	require.NoError(t, err)

	doc, err := c.Get("0")
	require.NoError(t, err)
	require.EqualValues(t, 101, doc["price"])

	params := query.DefaultParams()
	params.Q = "*"
	params.FilterBy = "price:101"

	res, err := m.DoSearch("books", params, query.Params{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Found)
}

// TestAddIncrementOnMissingOptionalField resolves spec.md §9's open
// question: incrementing a field via EMPLACE that doesn't exist yet
// behaves as create-with-initial-value (current value treated as zero).
func TestAddIncrementOnMissingOptionalField(t *testing.T) {
	sch, err := schema.New([]schema.Field{
		{Name: "title", Type: schema.TypeString, Index: true},
		{Name: "views", Type: schema.TypeInt32, Index: true, Sort: true, Optional: true},
		{Name: "price", Type: schema.TypeFloat, Index: true, Sort: true},
	}, "price")
	require.NoError(t, err)
	c := New(1, "books", sch, newTestStore(t))
	_, err = c.Add(map[string]any{"id": "0", "title": "Sherlock Holmes", "price": 9.99}, OpCreate)
	require.NoError(t, err)

	_, err = c.Add(map[string]any{
		"id":          "0",
		"$operations": map[string]any{"increment": map[string]any{"views": 5.0}},
	}, OpEmplace)
	require.NoError(t, err)

	doc, err := c.Get("0")
	require.NoError(t, err)
	require.EqualValues(t, 5, doc["views"])
}

// TestDoSearchReferenceFilter is spec.md §8 scenario 4, run through
// Manager.DoSearch end to end (books filtered by a joined authors field).
func TestDoSearchReferenceFilter(t *testing.T) {
	m := NewManager(newTestStore(t))
	authors, err := m.CreateCollection("authors", authorsSchema(t))
	require.NoError(t, err)
	_, err = authors.Add(map[string]any{"id": "a1", "name": "Doyle"}, OpCreate)
	require.NoError(t, err)

	booksSch, err := schema.New([]schema.Field{
		{Name: "title", Type: schema.TypeString, Index: true},
		{Name: "author_id", Type: schema.TypeString, Index: true, Facet: true, Reference: "authors.id"},
		{Name: "price", Type: schema.TypeFloat, Index: true, Sort: true},
	}, "price")
	require.NoError(t, err)
	books, err := m.CreateCollection("books", booksSch)
	require.NoError(t, err)
	_, err = books.Add(map[string]any{"id": "b1", "title": "Sign of Four", "author_id": "a1", "price": 9.99}, OpCreate)
	require.NoError(t, err)

	params := query.DefaultParams()
	params.Q = "*"
	params.FilterBy = "$authors(name:Doyle)"

	res, err := m.DoSearch("books", params, query.Params{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Found)
	require.Equal(t, "b1", res.Hits[0].Document["id"])
}

// TestAddUpsertRequiresNonOptionalFields is spec.md §4.3: "upsert
// requires a document satisfying all non-optional fields".
func TestAddUpsertRequiresNonOptionalFields(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "b1", "title": "x"}, OpUpsert)
	require.Error(t, err)

	_, err = c.Add(map[string]any{"id": "b1", "title": "x", "author": "y", "price": 1.0, "in_stock": true}, OpUpsert)
	require.NoError(t, err)
}

// TestDoSearchFacetCounts exercises facet_by aggregation over a filtered
// result set.
func TestDoSearchFacetCounts(t *testing.T) {
	m := NewManager(newTestStore(t))
	_, err := m.CreateCollection("books", booksSchema(t))
	require.NoError(t, err)
	c, err := m.GetCollection("books")
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "1", "title": "Sign of Four", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "2", "title": "Valley of Fear", "author": "Doyle", "price": 12.0, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	params := query.DefaultParams()
	params.Q = "*"
	params.FacetBy = []string{"author"}

	res, err := m.DoSearch("books", params, query.Params{})
	require.NoError(t, err)
	require.Len(t, res.FacetCounts, 1)
	require.Equal(t, "author", res.FacetCounts[0].FieldName)
	require.Equal(t, 2, res.FacetCounts[0].Counts[0].Count)
}
