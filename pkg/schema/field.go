// Package schema implements the per-collection field model: field types,
// their validation rules, and the document flattening algorithm that turns
// a nested JSON document into the flat key set the index families operate
// on.
package schema

import "github.com/cuemby/glint/pkg/glinterr"

// FieldType is the sum type a field's value must conform to. Per the
// redesign guidance carried into this implementation, array-ness is a
// separate flag on Field rather than a distinct enum member per type.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt32
	TypeInt64
	TypeFloat
	TypeBool
	TypeGeopoint
	TypeObject
	TypeAuto
	TypeImage
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeGeopoint:
		return "geopoint"
	case TypeObject:
		return "object"
	case TypeAuto:
		return "auto"
	case TypeImage:
		return "image"
	default:
		return "unknown"
	}
}

// VectorDistance is the similarity metric an embedding field is scored
// with.
type VectorDistance int

const (
	DistCosine VectorDistance = iota
	DistInnerProduct
)

// Field describes one schema field and every attribute that governs how
// it is indexed, sorted, faceted, and searched.
type Field struct {
	Name     string
	Type     FieldType
	Array    bool
	Facet    bool
	Optional bool
	Index    bool
	Sort     bool
	Infix    bool
	Locale   string
	Nested   bool

	// NestedArray is a tri-state: nil means "not yet known", true/false
	// once the first document resolves whether this nested field sits
	// under an array of objects.
	NestedArray *bool

	NumDim         int
	VecDist        VectorDistance
	HNSWParams     map[string]any
	Reference      string // "OtherCollection.field"
	AsyncReference bool

	Embed map[string]any

	RangeIndex bool
	Stem       bool
	StemmerDict string

	Store bool
}

// IsReferenceHelper reports whether name is the synthetic sequence-id
// field generated alongside a reference field.
func IsReferenceHelper(name string) bool {
	const suffix = "_sequence_id"
	return len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix
}

// HasNumericalIndex reports whether the field's scalar values are held in
// a numeric index (int32/int64/float/bool, but not arrays of them for
// range queries — arrays still use the numeric index per-element).
func (f Field) HasNumericalIndex() bool {
	switch f.Type {
	case TypeInt32, TypeInt64, TypeFloat, TypeBool:
		return true
	default:
		return false
	}
}

// IsNumSortField reports whether the field can be used in a numeric sort
// clause.
func (f Field) IsNumSortField() bool {
	return f.HasNumericalIndex() || f.Type == TypeGeopoint
}

// IsSortable reports whether Sort is actually usable given the type: a
// declared-sortable numeric/geopoint field, or a declared-sortable string
// field.
func (f Field) IsSortable() bool {
	if !f.Sort {
		return false
	}
	return f.IsNumSortField() || f.Type == TypeString
}

// DefaultSort reports whether a scalar field of this type is sortable by
// default when the wire JSON (or a programmatically synthesized field,
// e.g. a promoted dynamic/fallback field) doesn't specify "sort"
// explicitly — spec.md §4.3's "numeric fields are always sortable"
// invariant. Array fields are never sortable by default, matching
// IsSortable's own scalar-only treatment of numeric/geopoint types.
func DefaultSort(t FieldType, array bool) bool {
	if array {
		return false
	}
	switch t {
	case TypeInt32, TypeInt64, TypeFloat, TypeGeopoint:
		return true
	default:
		return false
	}
}

// IsVector reports whether this is an embedding field (float[] with
// num_dim set).
func (f Field) IsVector() bool {
	return f.Type == TypeFloat && f.Array && f.NumDim > 0
}

// Validate checks the invariants spec §3 places on a single field in
// isolation (cross-field invariants like default_sorting_field live on
// Schema.Validate).
func (f Field) Validate() error {
	if f.Name == "" {
		return glinterr.ClientError("name", "field name must not be empty")
	}
	if f.IsVector() {
		if f.Facet {
			return glinterr.ClientError(f.Name, "vector field %q cannot be a facet", f.Name)
		}
		if f.Sort {
			return glinterr.ClientError(f.Name, "vector field %q cannot be sortable", f.Name)
		}
	}
	if f.NumDim > 0 && !f.IsVector() {
		return glinterr.ClientError(f.Name, "field %q sets num_dim but is not float[]", f.Name)
	}
	return nil
}
