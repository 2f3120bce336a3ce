package collection

import (
	"testing"

	"github.com/cuemby/glint/pkg/filter"
	"github.com/cuemby/glint/pkg/schema"
	"github.com/stretchr/testify/require"
)

func TestManagerCreateAndGetCollection(t *testing.T) {
	m := NewManager(newTestStore(t))
	c, err := m.CreateCollection("books", booksSchema(t))
	require.NoError(t, err)
	require.Equal(t, uint32(1), c.ID)

	got, err := m.GetCollection("books")
	require.NoError(t, err)
	require.Same(t, c, got)
}

func TestManagerCreateCollectionRejectsDuplicate(t *testing.T) {
	m := NewManager(newTestStore(t))
	_, err := m.CreateCollection("books", booksSchema(t))
	require.NoError(t, err)

	_, err = m.CreateCollection("books", booksSchema(t))
	require.Error(t, err)
}

func TestManagerDropCollectionRemovesDocuments(t *testing.T) {
	m := NewManager(newTestStore(t))
	c, err := m.CreateCollection("books", booksSchema(t))
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "b1", "title": "x", "author": "y", "price": 1.0, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	require.NoError(t, m.DropCollection("books"))
	_, err = m.GetCollection("books")
	require.Error(t, err)
}

func TestManagerSymlinkResolvesToTarget(t *testing.T) {
	m := NewManager(newTestStore(t))
	c, err := m.CreateCollection("books", booksSchema(t))
	require.NoError(t, err)
	require.NoError(t, m.UpsertSymlink("library", "books"))

	got, err := m.GetCollection("library")
	require.NoError(t, err)
	require.Same(t, c, got)
}

func authorsSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.Field{
		{Name: "name", Type: schema.TypeString, Index: true, Facet: true},
	}, "")
	require.NoError(t, err)
	return sch
}

func TestReferenceFilterJoinsAcrossCollections(t *testing.T) {
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
	_, err = books.Add(map[string]any{"id": "b1", "title": "Sherlock Holmes", "author_id": "a1", "price": 9.99}, OpCreate)
	require.NoError(t, err)

	n, err := filter.Parse("$authors(name:Doyle)", 0)
	require.NoError(t, err)
	got, err := books.MatchReference(n.Leaf)
	require.NoError(t, err)
	require.Equal(t, []uint32{1}, got)
}

func TestManagerLoadAllRebuildsCollections(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store)
	c, err := m.CreateCollection("books", booksSchema(t))
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "b1", "title": "Sherlock Holmes", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)

	reloaded := NewManager(store)
	require.NoError(t, reloaded.LoadAll())

	got, err := reloaded.GetCollection("books")
	require.NoError(t, err)
	require.Equal(t, 1, got.DocCount())

	doc, err := got.Get("b1")
	require.NoError(t, err)
	require.Equal(t, "Sherlock Holmes", doc["title"])
}
