package collection

import (
	"testing"

	"github.com/cuemby/glint/pkg/query"
	"github.com/stretchr/testify/require"
)

func TestUpsertSynonymPersistsAndLists(t *testing.T) {
	m := NewManager(newTestStore(t))
	require.NoError(t, m.UpsertSynonym("books", Synonym{ID: "s1", Synonyms: []string{"couch", "sofa"}}))

	got := m.ListSynonyms("books")
	require.Len(t, got, 1)
	require.Equal(t, "s1", got[0].ID)
}

func TestDropSynonymRemovesRule(t *testing.T) {
	m := NewManager(newTestStore(t))
	require.NoError(t, m.UpsertSynonym("books", Synonym{ID: "s1", Synonyms: []string{"couch", "sofa"}}))
	require.NoError(t, m.DropSynonym("books", "s1"))
	require.Empty(t, m.ListSynonyms("books"))
}

func TestLoadAllRebuildsSynonyms(t *testing.T) {
	store := newTestStore(t)
	m := NewManager(store)
	require.NoError(t, m.UpsertSynonym("books", Synonym{ID: "s1", Root: "nyc", Synonyms: []string{"new york", "new york city"}}))

	m2 := NewManager(store)
	require.NoError(t, m2.LoadAll())
	got := m2.ListSynonyms("books")
	require.Len(t, got, 1)
	require.Equal(t, "nyc", got[0].Root)
}

func TestExpandSynonymsMultiWayAddsOtherTerms(t *testing.T) {
	rules := []Synonym{{ID: "s1", Synonyms: []string{"couch", "sofa", "settee"}}}
	got := expandSynonyms("comfy couch", rules, false, 0)
	require.Contains(t, got, "comfy couch")
	require.Contains(t, got, "sofa")
	require.Contains(t, got, "settee")
	require.NotContains(t, got, "couch couch")
}

func TestExpandSynonymsOneWayRootTriggersSynonyms(t *testing.T) {
	rules := []Synonym{{ID: "s1", Root: "nyc", Synonyms: []string{"new york", "new york city"}}}
	got := expandSynonyms("flights to nyc", rules, false, 0)
	require.Contains(t, got, "new")
	require.Contains(t, got, "york")
}

func TestExpandSynonymsNoMatchLeavesQueryUnchanged(t *testing.T) {
	rules := []Synonym{{ID: "s1", Synonyms: []string{"couch", "sofa"}}}
	got := expandSynonyms("bookshelf", rules, false, 0)
	require.Equal(t, "bookshelf", got)
}

func TestExpandSynonymsTyposTriggerMatch(t *testing.T) {
	rules := []Synonym{{ID: "s1", Synonyms: []string{"couch", "sofa"}}}
	got := expandSynonyms("cuch", rules, false, 1)
	require.Contains(t, got, "sofa")
}

func TestDoSearchExpandsSynonymsWhenEnabled(t *testing.T) {
	m := NewManager(newTestStore(t))
	c, err := m.CreateCollection("books", booksSchema(t))
	require.NoError(t, err)
	_, err = c.Add(map[string]any{"id": "b1", "title": "sofa guide", "author": "Doyle", "price": 9.99, "in_stock": true}, OpCreate)
	require.NoError(t, err)
	require.NoError(t, m.UpsertSynonym("books", Synonym{ID: "s1", Synonyms: []string{"couch", "sofa"}}))

	params := query.DefaultParams()
	params.Q = "couch"
	params.QueryBy = []string{"title"}

	res, err := m.DoSearch("books", params, query.Params{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Found)
}
