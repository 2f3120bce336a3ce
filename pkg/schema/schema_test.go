package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSchemaResolvesConcreteFields(t *testing.T) {
	s, err := New([]Field{
		{Name: "title", Type: TypeString, Index: true},
		{Name: "price", Type: TypeFloat, Sort: true},
	}, "price")
	require.NoError(t, err)

	f, ok := s.Field("title")
	require.True(t, ok)
	require.Equal(t, TypeString, f.Type)
}

func TestDefaultSortingFieldMustBeNumeric(t *testing.T) {
	_, err := New([]Field{
		{Name: "title", Type: TypeString},
	}, "title")
	require.Error(t, err)
}

func TestDefaultSortingFieldMustExist(t *testing.T) {
	_, err := New([]Field{
		{Name: "title", Type: TypeString},
	}, "price")
	require.Error(t, err)
}

func TestVectorFieldRejectsFacetAndSort(t *testing.T) {
	err := Field{Name: "embedding", Type: TypeFloat, Array: true, NumDim: 128, Facet: true}.Validate()
	require.Error(t, err)

	err = Field{Name: "embedding", Type: TypeFloat, Array: true, NumDim: 128, Sort: true}.Validate()
	require.Error(t, err)
}

func TestNumDimRequiresVectorShape(t *testing.T) {
	err := Field{Name: "bad", Type: TypeString, NumDim: 4}.Validate()
	require.Error(t, err)
}

func TestDynamicFieldMatches(t *testing.T) {
	s, err := New([]Field{
		{Name: ".*", Type: TypeAuto},
		{Name: "price", Type: TypeFloat, Sort: true},
	}, "price")
	require.NoError(t, err)

	f, ok := s.Resolve("anything_goes")
	require.True(t, ok)
	require.Equal(t, TypeAuto, f.Type)
}

func TestFlattenTopLevelFields(t *testing.T) {
	s, err := New([]Field{
		{Name: "title", Type: TypeString},
		{Name: "price", Type: TypeFloat, Sort: true},
	}, "price")
	require.NoError(t, err)

	flat, err := s.Flatten(map[string]any{
		"title": "Widget",
		"price": 9.99,
	})
	require.NoError(t, err)
	require.Len(t, flat.Values, 2)
	require.Empty(t, flat.Flat)
}

func TestFlattenNestedObject(t *testing.T) {
	s, err := New([]Field{
		{Name: "price", Type: TypeFloat, Sort: true},
		{Name: "address.city", Type: TypeString},
	}, "price")
	require.NoError(t, err)
	s.EnableNestedFields = true

	flat, err := s.Flatten(map[string]any{
		"price": 1.0,
		"address": map[string]any{
			"city": "Berlin",
		},
	})
	require.NoError(t, err)

	var found bool
	for _, v := range flat.Values {
		if v.Path == "address.city" {
			found = true
			require.Equal(t, []any{"Berlin"}, v.Values)
		}
	}
	require.True(t, found)
	require.Contains(t, flat.Flat, "address.city")
}

func TestFlattenArrayOfObjectsCollectsNestedArray(t *testing.T) {
	s, err := New([]Field{
		{Name: "price", Type: TypeFloat, Sort: true},
		{Name: "variants.sku", Type: TypeString},
	}, "price")
	require.NoError(t, err)
	s.EnableNestedFields = true

	flat, err := s.Flatten(map[string]any{
		"price": 1.0,
		"variants": []any{
			map[string]any{"sku": "A"},
			map[string]any{"sku": "B"},
		},
	})
	require.NoError(t, err)

	var skuValues []any
	for _, v := range flat.Values {
		if v.Path == "variants.sku" {
			skuValues = v.Values
		}
	}
	require.Equal(t, []any{"A", "B"}, skuValues)

	f, _ := s.Field("variants.sku")
	require.NotNil(t, f.NestedArray)
	require.True(t, *f.NestedArray)
}

func TestAutoFieldPinnedToNumericBecomesSortable(t *testing.T) {
	s, err := New([]Field{
		{Name: "price", Type: TypeFloat, Sort: true},
		{Name: ".*", Type: TypeAuto},
	}, "price")
	require.NoError(t, err)

	_, err = s.Flatten(map[string]any{"price": 1.0, "views": 5.0})
	require.NoError(t, err)

	f, ok := s.Field("views")
	require.True(t, ok)
	require.Equal(t, TypeInt32, f.Type)
	require.True(t, f.Sort)
}

func TestFallbackFieldTypeNumericBecomesSortable(t *testing.T) {
	s, err := New([]Field{
		{Name: "price", Type: TypeFloat, Sort: true},
	}, "price")
	require.NoError(t, err)
	s.FallbackFieldType = TypeInt32
	s.HasFallbackType = true

	_, err = s.Flatten(map[string]any{"price": 1.0, "views": 5.0})
	require.NoError(t, err)

	f, ok := s.Field("views")
	require.True(t, ok)
	require.True(t, f.Sort)
}

func TestResolveNestedArrayNeverDowngrades(t *testing.T) {
	s, err := New([]Field{
		{Name: "price", Type: TypeFloat, Sort: true},
		{Name: "tags", Type: TypeString},
	}, "price")
	require.NoError(t, err)

	s.ResolveNestedArray("tags", true)
	s.ResolveNestedArray("tags", false)

	f, _ := s.Field("tags")
	require.True(t, *f.NestedArray)
}
