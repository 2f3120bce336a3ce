package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLeafContainsDefault(t *testing.T) {
	l, err := parseLeaf("title:harry", maxTokens)
	require.NoError(t, err)
	require.Equal(t, "title", l.Field)
	require.Equal(t, OpContains, l.Op)
	require.Equal(t, "harry", l.Value.Str)
}

func TestParseLeafNumericComparators(t *testing.T) {
	cases := []struct {
		text string
		op   CompareOp
		num  float64
	}{
		{"price:>10", OpGt, 10},
		{"price:>=10", OpGte, 10},
		{"price:<10", OpLt, 10},
		{"price:<=10", OpLte, 10},
		{"price:=10", OpEq, 10},
		{"price:!=10", OpNeq, 10},
	}
	for _, c := range cases {
		l, err := parseLeaf(c.text, maxTokens)
		require.NoError(t, err, c.text)
		require.Equal(t, c.op, l.Op, c.text)
		require.True(t, l.Value.HasNum, c.text)
		require.Equal(t, c.num, l.Value.Num, c.text)
	}
}

func TestParseLeafRange(t *testing.T) {
	l, err := parseLeaf("price:[10..20]", maxTokens)
	require.NoError(t, err)
	require.Equal(t, OpRange, l.Op)
	require.Equal(t, 10.0, l.Value.RangeLo)
	require.Equal(t, 20.0, l.Value.RangeHi)
}

func TestParseLeafInSet(t *testing.T) {
	l, err := parseLeaf("category:[shoes,hats,bags]", maxTokens)
	require.NoError(t, err)
	require.Equal(t, OpIn, l.Op)
	require.Equal(t, []string{"shoes", "hats", "bags"}, l.Value.Set)
}

func TestParseLeafNotInSet(t *testing.T) {
	l, err := parseLeaf("category:!=[shoes,hats]", maxTokens)
	require.NoError(t, err)
	require.Equal(t, OpNotIn, l.Op)
	require.Equal(t, []string{"shoes", "hats"}, l.Value.Set)
}

func TestParseLeafGeoRadius(t *testing.T) {
	l, err := parseLeaf("location:(48.85, 2.29, 5 km)", maxTokens)
	require.NoError(t, err)
	require.Equal(t, OpGeoRadius, l.Op)
	require.NotNil(t, l.Value.Geo)
	require.InDelta(t, 48.85, l.Value.Geo.Lat, 0.001)
	require.InDelta(t, 2.29, l.Value.Geo.Lng, 0.001)
	require.InDelta(t, 5, l.Value.Geo.RadiusKM, 0.001)
}

func TestParseLeafBacktickQuotedValue(t *testing.T) {
	l, err := parseLeaf("title:=`Bed && Breakfast`", maxTokens)
	require.NoError(t, err)
	require.Equal(t, OpEq, l.Op)
	require.Equal(t, "Bed && Breakfast", l.Value.Str)
}

func TestParseLeafBoolean(t *testing.T) {
	l, err := parseLeaf("in_stock:true", maxTokens)
	require.NoError(t, err)
	require.True(t, l.Value.HasBool)
	require.True(t, l.Value.Bool)
}

func TestParseReferenceLeaf(t *testing.T) {
	l, err := parseLeaf("$authors(name:Doyle)", maxTokens)
	require.NoError(t, err)
	require.True(t, l.IsReference)
	require.Equal(t, "authors", l.RefCollection)
	require.NotNil(t, l.RefInner)
	require.Equal(t, NodeLeaf, l.RefInner.Kind)
	require.Equal(t, "name", l.RefInner.Leaf.Field)
	require.Equal(t, "Doyle", l.RefInner.Leaf.Value.Str)
}

func TestParseLeafMissingColonErrors(t *testing.T) {
	_, err := parseLeaf("malformed", maxTokens)
	require.Error(t, err)
}
