package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBuildsAndTree(t *testing.T) {
	n, err := Parse("price:>10 && in_stock:true", 0)
	require.NoError(t, err)
	require.Equal(t, NodeAnd, n.Kind)
	require.Equal(t, "price", n.Left.Leaf.Field)
	require.Equal(t, "in_stock", n.Right.Leaf.Field)
}

func TestParseRespectsGrouping(t *testing.T) {
	n, err := Parse("(price:>10 || price:<5) && in_stock:true", 0)
	require.NoError(t, err)
	require.Equal(t, NodeAnd, n.Kind)
	require.Equal(t, NodeOr, n.Left.Kind)
	require.Equal(t, "in_stock", n.Right.Leaf.Field)
}

func TestParseEmptyExpressionErrors(t *testing.T) {
	_, err := Parse("", 0)
	require.Error(t, err)
}

func TestParseUnbalancedParensErrors(t *testing.T) {
	_, err := Parse("(price:>10", 0)
	require.Error(t, err)
}
