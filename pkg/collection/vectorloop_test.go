package collection

import (
	"testing"

	"github.com/cuemby/glint/pkg/schema"
	"github.com/stretchr/testify/require"
)

func productsWithEmbeddingSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.Field{
		{Name: "price", Type: schema.TypeFloat, Sort: true},
		{Name: "embedding", Type: schema.TypeFloat, Array: true, NumDim: 3, Index: true},
	}, "price")
	require.NoError(t, err)
	return sch
}

func TestRebuildVectorIndexesPreservesLivePoints(t *testing.T) {
	c := New(1, "products", productsWithEmbeddingSchema(t), newTestStore(t))
	for i := 0; i < 5; i++ {
		_, err := c.Add(map[string]any{
			"id":        string(rune('a' + i)),
			"price":     float64(i),
			"embedding": []any{float64(i), 1.0, 0.0},
		}, OpCreate)
		require.NoError(t, err)
	}

	require.NoError(t, c.rebuildVectorIndexes())

	fi := c.byField["embedding"]
	require.NotNil(t, fi.vector)
	require.Equal(t, 5, fi.vector.Size())
}
