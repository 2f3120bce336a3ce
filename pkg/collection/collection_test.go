package collection

import (
	"testing"

	"github.com/cuemby/glint/pkg/kv"
	"github.com/cuemby/glint/pkg/schema"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) kv.Store {
	t.Helper()
	store, err := kv.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func booksSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.Field{
		{Name: "title", Type: schema.TypeString, Index: true},
		{Name: "author", Type: schema.TypeString, Index: true, Facet: true},
		{Name: "price", Type: schema.TypeFloat, Index: true, Sort: true},
		{Name: "in_stock", Type: schema.TypeBool, Index: true},
	}, "price")
	require.NoError(t, err)
	return sch
}

func TestAddCreateAssignsSeqID(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))

	seq, err := c.Add(map[string]any{"id": "b1", "title": "Sherlock Holmes", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
	require.Equal(t, 1, c.DocCount())
}

func TestAddCreateRejectsDuplicateID(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "b1", "title": "x", "author": "y", "price": 1.0, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	_, err = c.Add(map[string]any{"id": "b1", "title": "x", "author": "y", "price": 1.0, "in_stock": true}, OpCreate)
	require.Error(t, err)
}

func TestAddUpdateRequiresExisting(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "ghost", "title": "x"}, OpUpdate)
	require.Error(t, err)
}

func TestAddUpdateMergesFields(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "b1", "title": "Old Title", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	_, err = c.Add(map[string]any{"id": "b1", "title": "New Title"}, OpUpdate)
	require.NoError(t, err)

	doc, err := c.Get("b1")
	require.NoError(t, err)
	require.Equal(t, "New Title", doc["title"])
	require.Equal(t, "Doyle", doc["author"])
}

func TestAddDeleteRemovesDocument(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "b1", "title": "x", "author": "y", "price": 1.0, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	_, err = c.Add(map[string]any{"id": "b1"}, OpDelete)
	require.NoError(t, err)
	require.Equal(t, 0, c.DocCount())

	_, err = c.Get("b1")
	require.Error(t, err)
}

func TestAddCreateWithoutIDAutoAssigns(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	seq, err := c.Add(map[string]any{"title": "x", "author": "y", "price": 1.0, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	doc, err := c.Get("1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
	require.Equal(t, "1", doc["id"])
}

func TestMatchLeafContainsFindsDocument(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "b1", "title": "Sherlock Holmes", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	n, err := parseTestFilter(t, "title:sherlock")
	require.NoError(t, err)
	got, err := c.MatchLeaf(n.Leaf)
	require.NoError(t, err)
	require.Equal(t, []uint32{1}, got)
}

func TestMatchLeafIDFieldResolvesSeqID(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "b1", "title": "Sherlock Holmes", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "b2", "title": "Dracula", "author": "Stoker", "price": 7.5, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	n, err := parseTestFilter(t, "id:b2")
	require.NoError(t, err)
	got, err := c.MatchLeaf(n.Leaf)
	require.NoError(t, err)
	require.Equal(t, []uint32{2}, got)
}

func TestMatchLeafIDFieldResolvesSet(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "b1", "title": "Sherlock Holmes", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "b2", "title": "Dracula", "author": "Stoker", "price": 7.5, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	n, err := parseTestFilter(t, "id:[b1,b2]")
	require.NoError(t, err)
	got, err := c.MatchLeaf(n.Leaf)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, got)
}

func TestMatchLeafIDFieldUnknownIDMatchesNothing(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "b1", "title": "Sherlock Holmes", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	n, err := parseTestFilter(t, "id:ghost")
	require.NoError(t, err)
	got, err := c.MatchLeaf(n.Leaf)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUnindexOnDeleteClearsPostings(t *testing.T) {
	c := New(1, "books", booksSchema(t), newTestStore(t))
	_, err := c.Add(map[string]any{"id": "b1", "title": "Sherlock Holmes", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "b1"}, OpDelete)
	require.NoError(t, err)

	n, err := parseTestFilter(t, "title:sherlock")
	require.NoError(t, err)
	got, err := c.MatchLeaf(n.Leaf)
	require.NoError(t, err)
	require.Empty(t, got)
}
