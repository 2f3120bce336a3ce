package schema

// FlatValue is one leaf of a flattened document: a dotted path plus the
// value(s) found at it (already coerced into a single scalar or a flat
// array of scalars — nested-array collapsing has already happened).
type FlatValue struct {
	Path    string
	Field   Field
	Values  []any
	IsArray bool
}

// Flattened is the result of flattening one document: the leaf values, and
// the ".flat" sidecar list of paths that were synthesized (rather than
// being literal top-level keys) so the write pipeline can reconstruct
// which keys were dynamic matches.
type Flattened struct {
	Values []FlatValue
	Flat   []string
}

// Flatten walks doc recursively, matching each leaf path against the
// schema's concrete and dynamic fields, and produces the flattened key
// set plus the .flat sidecar list that records synthesized (dynamically
// matched, nested-origin) paths.
func (s *Schema) Flatten(doc map[string]any) (*Flattened, error) {
	out := &Flattened{}
	for key, val := range doc {
		if key == "id" {
			continue
		}
		if err := s.flattenValue(key, val, false, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Schema) flattenValue(path string, val any, synthesized bool, out *Flattened) error {
	switch v := val.(type) {
	case map[string]any:
		if !s.EnableNestedFields {
			// Nested fields off: an object value is stored verbatim but
			// never recursed into or indexed (spec.md §4.3 step 2).
			return nil
		}
		for key, child := range v {
			childPath := path + "." + key
			if err := s.flattenValue(childPath, child, true, out); err != nil {
				return err
			}
		}
		return nil
	case []any:
		return s.flattenArray(path, v, synthesized, out)
	default:
		f, ok := s.resolveOrPromote(path, synthesized, v, false)
		if !ok {
			// Unknown field with no dynamic match and no fallback type:
			// left unindexed, still stored verbatim by the collection's
			// document store.
			return nil
		}
		out.Values = append(out.Values, FlatValue{Path: path, Field: f, Values: []any{v}})
		if synthesized {
			out.Flat = append(out.Flat, path)
		}
		return nil
	}
}

// inferScalarType derives the concrete FieldType a JSON-decoded scalar
// value implies, for "auto"/fallback-typed fields (spec.md §4.3 step 1:
// "for auto/fallback fields, infer type on first sighting and pin it").
// Geopoint inference from a bare [lat,lng] pair is not attempted here —
// an auto field holding a two-element numeric array is treated as
// float[], same as any other numeric array; a document that wants
// geopoint semantics must declare the field explicitly.
func inferScalarType(v any) (FieldType, bool) {
	switch n := v.(type) {
	case string:
		return TypeString, true
	case bool:
		return TypeBool, true
	case float64:
		if n == float64(int64(n)) {
			if n >= -2147483648 && n <= 2147483647 {
				return TypeInt32, true
			}
			return TypeInt64, true
		}
		return TypeFloat, true
	default:
		return 0, false
	}
}

// pinAutoType resolves f's type in place the first time a concrete value
// is seen for it, if f is still declared "auto" (or was built from the
// collection's fallback_field_type). Once pinned it never changes, per
// spec.md §4.3 step 1 and §3's "auto" field type.
func pinAutoType(f *Field, sample any, array bool) {
	if f.Type != TypeAuto {
		return
	}
	t, ok := inferScalarType(sample)
	if !ok {
		return
	}
	f.Type = t
	f.Array = array
	f.Sort = f.Sort || DefaultSort(t, array)
}

// resolveOrPromote resolves path against the schema the way Resolve does,
// but additionally:
//   - promotes a dynamic-pattern match into a concrete schema field
//     (spec.md §4.3 step 2: "promoting per-path flattened fields into the
//     schema"), marking it nested when it arrived via nested-field
//     expansion, so later documents, sort_by/filter_by validation, and
//     schema inspection see a first-class field instead of re-deriving it
//     from the pattern every time;
//   - falls back to the collection's fallback_field_type for a path that
//     matches nothing at all, when one is configured (spec.md §3's
//     fallback_field_type);
//   - pins an "auto" field's concrete type from the first value observed
//     for it (spec.md §4.3 step 1).
func (s *Schema) resolveOrPromote(path string, synthesized bool, sample any, array bool) (Field, bool) {
	if f, ok := s.byName[path]; ok {
		pinAutoType(f, sample, array)
		return *f, true
	}

	f, ok := s.MatchDynamic(path)
	if !ok {
		if !s.HasFallbackType {
			return Field{}, false
		}
		f = Field{Type: s.FallbackFieldType, Index: true, Sort: DefaultSort(s.FallbackFieldType, array)}
	}
	f.Name = path
	if synthesized {
		f.Nested = true
	}
	s.AddField(f)
	promoted := s.byName[path]
	pinAutoType(promoted, sample, array)
	return *promoted, true
}

// flattenArray handles arrays of scalars (a normal array field) and
// arrays of objects (fields nested one level inside each element are
// collected together as arrays at the child path, tracking NestedArray
// tri-state resolution along the way).
func (s *Schema) flattenArray(path string, arr []any, synthesized bool, out *Flattened) error {
	if len(arr) == 0 {
		return nil
	}
	if _, isObj := arr[0].(map[string]any); isObj {
		if !s.EnableNestedFields {
			return nil
		}
		collected := make(map[string][]any)
		for _, elem := range arr {
			obj, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			for key, child := range obj {
				collected[key] = append(collected[key], child)
			}
		}
		for key, values := range collected {
			childPath := path + "." + key
			var sample any
			if len(values) > 0 {
				sample = values[0]
			}
			f, ok := s.resolveOrPromote(childPath, true, sample, false)
			if !ok {
				continue
			}
			s.ResolveNestedArray(childPath, true)
			f, _ = s.Resolve(childPath)
			out.Values = append(out.Values, FlatValue{Path: childPath, Field: f, Values: values, IsArray: true})
			out.Flat = append(out.Flat, childPath)
		}
		return nil
	}

	var sample any
	if len(arr) > 0 {
		sample = arr[0]
	}
	f, ok := s.resolveOrPromote(path, synthesized, sample, true)
	if !ok {
		return nil
	}
	out.Values = append(out.Values, FlatValue{Path: path, Field: f, Values: arr, IsArray: true})
	if synthesized {
		out.Flat = append(out.Flat, path)
	}
	return nil
}

// ResolveNestedArray updates the tri-state NestedArray flag on a nested
// field: a field first observed as non-array (nil or false) may be
// corrected to true once an actual array is seen, but never the reverse.
// Grounded on original_source/src/field.cpp's nested_array resolution.
func (s *Schema) ResolveNestedArray(path string, isArray bool) {
	f, ok := s.byName[path]
	if !ok {
		return
	}
	if !isArray {
		if f.NestedArray == nil {
			unknown := false
			f.NestedArray = &unknown
		}
		return
	}
	t := true
	f.NestedArray = &t
}
