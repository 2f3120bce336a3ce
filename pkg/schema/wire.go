package schema

import (
	"encoding/json"
	"strings"

	"github.com/cuemby/glint/pkg/glinterr"
)

// wireField is the JSON shape of a field descriptor as it travels over
// the collection-meta persisted layout and the create-collection request
// body (spec.md §3, §6): snake_case keys, a single "type" string such as
// "string[]" or "int32" rather than a separate array flag, and
// "vec_dist"/"nested_array" spelled out as strings.
type wireField struct {
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	Facet          bool           `json:"facet,omitempty"`
	Optional       bool           `json:"optional,omitempty"`
	Index          *bool          `json:"index,omitempty"`
	Sort           *bool          `json:"sort,omitempty"`
	Infix          bool           `json:"infix,omitempty"`
	Locale         string         `json:"locale,omitempty"`
	Nested         bool           `json:"nested,omitempty"`
	NestedArray    *string        `json:"nested_array,omitempty"`
	NumDim         int            `json:"num_dim,omitempty"`
	VecDist        string         `json:"vec_dist,omitempty"`
	HNSWParams     map[string]any `json:"hnsw_params,omitempty"`
	Reference      string         `json:"reference,omitempty"`
	AsyncReference bool           `json:"async_reference,omitempty"`
	Embed          map[string]any `json:"embed,omitempty"`
	RangeIndex     bool           `json:"range_index,omitempty"`
	Stem           bool           `json:"stem,omitempty"`
	StemmerDict    string         `json:"stem_dict,omitempty"`
	Store          bool           `json:"store,omitempty"`
}

// baseTypeNames maps the scalar (non-array) portion of a wire type string
// to its FieldType. "string[]" etc. are the same name with a "[]" suffix
// stripped before lookup.
var baseTypeNames = map[string]FieldType{
	"string":   TypeString,
	"int32":    TypeInt32,
	"int64":    TypeInt64,
	"float":    TypeFloat,
	"bool":     TypeBool,
	"geopoint": TypeGeopoint,
	"object":   TypeObject,
	"auto":     TypeAuto,
	"image":    TypeImage,
}

var typeNameFor = map[FieldType]string{
	TypeString:   "string",
	TypeInt32:    "int32",
	TypeInt64:    "int64",
	TypeFloat:    "float",
	TypeBool:     "bool",
	TypeGeopoint: "geopoint",
	TypeObject:   "object",
	TypeAuto:     "auto",
	TypeImage:    "image",
}

// ParseFieldType parses a bare (non-array) wire type name such as
// "string" or "int32" into a FieldType, for contexts like
// fallback_field_type that never carry an array suffix.
func ParseFieldType(s string) (FieldType, error) {
	t, ok := baseTypeNames[s]
	if !ok {
		return 0, glinterr.ClientError("fallback_field_type", "unrecognized field type %q", s)
	}
	return t, nil
}

func parseTypeName(s string) (FieldType, bool, error) {
	array := strings.HasSuffix(s, "[]")
	base := strings.TrimSuffix(s, "[]")
	t, ok := baseTypeNames[base]
	if !ok {
		return 0, false, glinterr.ClientError("type", "unrecognized field type %q", s)
	}
	return t, array, nil
}

func typeName(t FieldType, array bool) string {
	name := typeNameFor[t]
	if array {
		name += "[]"
	}
	return name
}

// UnmarshalJSON parses a field descriptor from the wire format documented
// in spec.md §3/§6 into the internal sum-type representation.
func (f *Field) UnmarshalJSON(data []byte) error {
	var w wireField
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t, array, err := parseTypeName(w.Type)
	if err != nil {
		return err
	}

	index := true
	if w.Index != nil {
		index = *w.Index
	}

	// spec.md §4.3: numeric/geopoint fields are sortable by default unless
	// the wire JSON explicitly overrides "sort".
	sort := DefaultSort(t, array)
	if w.Sort != nil {
		sort = *w.Sort
	}

	vecDist := DistCosine
	if w.VecDist == "ip" {
		vecDist = DistInnerProduct
	}

	var nestedArray *bool
	if w.NestedArray != nil {
		switch *w.NestedArray {
		case "true":
			v := true
			nestedArray = &v
		case "false":
			v := false
			nestedArray = &v
		default:
			// "unknown" (or any other value) leaves the tri-state unresolved.
		}
	}

	*f = Field{
		Name:           w.Name,
		Type:           t,
		Array:          array,
		Facet:          w.Facet,
		Optional:       w.Optional,
		Index:          index,
		Sort:           sort,
		Infix:          w.Infix,
		Locale:         w.Locale,
		Nested:         w.Nested,
		NestedArray:    nestedArray,
		NumDim:         w.NumDim,
		VecDist:        vecDist,
		HNSWParams:     w.HNSWParams,
		Reference:      w.Reference,
		AsyncReference: w.AsyncReference,
		Embed:          w.Embed,
		RangeIndex:     w.RangeIndex,
		Stem:           w.Stem,
		StemmerDict:    w.StemmerDict,
		Store:          w.Store,
	}
	return nil
}

// MarshalJSON renders a field descriptor in the same wire format
// UnmarshalJSON accepts, so collection-meta round-trips byte-for-byte in
// shape (not necessarily byte-identical, since map key order isn't fixed)
// across a store/reload cycle.
func (f Field) MarshalJSON() ([]byte, error) {
	w := wireField{
		Name:           f.Name,
		Type:           typeName(f.Type, f.Array),
		Facet:          f.Facet,
		Optional:       f.Optional,
		Index:          &f.Index,
		Sort:           &f.Sort,
		Infix:          f.Infix,
		Locale:         f.Locale,
		Nested:         f.Nested,
		NumDim:         f.NumDim,
		HNSWParams:     f.HNSWParams,
		Reference:      f.Reference,
		AsyncReference: f.AsyncReference,
		Embed:          f.Embed,
		RangeIndex:     f.RangeIndex,
		Stem:           f.Stem,
		StemmerDict:    f.StemmerDict,
		Store:          f.Store,
	}
	if f.VecDist == DistInnerProduct {
		w.VecDist = "ip"
	}
	if f.NestedArray != nil {
		s := "false"
		if *f.NestedArray {
			s = "true"
		}
		w.NestedArray = &s
	}
	return json.Marshal(w)
}

// CreateRequest is the JSON body of POST /collections (spec.md §6): a
// collection name, its ordered field list, and the handful of
// collection-wide knobs create_collection validates before reserving an
// id.
type CreateRequest struct {
	Name                string  `json:"name"`
	Fields              []Field `json:"fields"`
	DefaultSortingField string  `json:"default_sorting_field"`
	FallbackFieldType   string  `json:"fallback_field_type"`
	EnableNestedFields  bool    `json:"enable_nested_fields"`
	SymbolsToIndex      []string `json:"symbols_to_index"`
	TokenSeparators     []string `json:"token_separators"`
}

// ParseCreateRequest decodes raw into a CreateRequest and builds the
// Schema it describes, applying the same field-level validation New
// already performs plus the request-level checks (non-empty name) spec.md
// §4.2's creation protocol calls for before a collection id is reserved.
func ParseCreateRequest(raw []byte) (name string, sch *Schema, err error) {
	var req CreateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", nil, glinterr.ClientError("", "malformed collection schema: %v", err)
	}
	if req.Name == "" {
		return "", nil, glinterr.ClientError("name", "collection name must not be empty")
	}

	sch, err = New(req.Fields, req.DefaultSortingField)
	if err != nil {
		return "", nil, err
	}
	sch.EnableNestedFields = req.EnableNestedFields
	if req.FallbackFieldType != "" {
		t, _, perr := parseTypeName(req.FallbackFieldType)
		if perr != nil {
			return "", nil, perr
		}
		sch.FallbackFieldType = t
		sch.HasFallbackType = true
	}
	for _, s := range req.SymbolsToIndex {
		if len(s) > 0 {
			sch.SymbolsToIndex = append(sch.SymbolsToIndex, []rune(s)[0])
		}
	}
	for _, s := range req.TokenSeparators {
		if len(s) > 0 {
			sch.TokenSeparators = append(sch.TokenSeparators, []rune(s)[0])
		}
	}
	return req.Name, sch, nil
}
