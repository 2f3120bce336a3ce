package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestUnmarshalNumericFieldDefaultsSortable is spec.md §4.3's "numeric
// fields are always sortable" invariant: a field descriptor that omits
// "sort" entirely still comes out sortable when its type is numeric or
// geopoint.
func TestUnmarshalNumericFieldDefaultsSortable(t *testing.T) {
	var f Field
	require.NoError(t, json.Unmarshal([]byte(`{"name":"price","type":"float"}`), &f))
	require.True(t, f.Sort)
	require.True(t, f.IsSortable())
}

func TestUnmarshalGeopointFieldDefaultsSortable(t *testing.T) {
	var f Field
	require.NoError(t, json.Unmarshal([]byte(`{"name":"loc","type":"geopoint"}`), &f))
	require.True(t, f.Sort)
}

// TestUnmarshalStringFieldDefaultsNotSortable: strings stay opt-in.
func TestUnmarshalStringFieldDefaultsNotSortable(t *testing.T) {
	var f Field
	require.NoError(t, json.Unmarshal([]byte(`{"name":"title","type":"string"}`), &f))
	require.False(t, f.Sort)
}

// TestUnmarshalExplicitSortOverridesDefault: an explicit "sort":false on a
// numeric field is honored rather than overridden by the computed default.
func TestUnmarshalExplicitSortOverridesDefault(t *testing.T) {
	var f Field
	require.NoError(t, json.Unmarshal([]byte(`{"name":"price","type":"float","sort":false}`), &f))
	require.False(t, f.Sort)

	var g Field
	require.NoError(t, json.Unmarshal([]byte(`{"name":"title","type":"string","sort":true}`), &g))
	require.True(t, g.Sort)
}

// TestUnmarshalNumericArrayFieldNotSortableByDefault: array-typed numeric
// fields don't get the scalar default (mirrors IsSortable's own
// scalar-only numeric/geopoint treatment).
func TestUnmarshalNumericArrayFieldNotSortableByDefault(t *testing.T) {
	var f Field
	require.NoError(t, json.Unmarshal([]byte(`{"name":"scores","type":"int32[]"}`), &f))
	require.False(t, f.Sort)
}

func TestMarshalRoundTripsSort(t *testing.T) {
	f := Field{Name: "price", Type: TypeFloat, Sort: true}
	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var out Field
	require.NoError(t, json.Unmarshal(raw, &out))
	require.True(t, out.Sort)
}
