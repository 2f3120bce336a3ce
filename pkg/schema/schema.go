package schema

import (
	"strings"

	"github.com/cuemby/glint/pkg/glinterr"
)

// DynamicField is a wildcard field definition such as ".*" or "ratings_.*"
// that concrete document fields are matched against when no explicit
// field declaration exists for them.
type DynamicField struct {
	Pattern string
	Field   Field
}

// Matches reports whether name satisfies this dynamic field's pattern.
// Only a single trailing "*" after a literal prefix is supported, matching
// the ".*"/"name_.*" forms spec §3 describes.
func (d DynamicField) Matches(name string) bool {
	star := strings.Index(d.Pattern, "*")
	if star < 0 {
		return d.Pattern == name
	}
	prefix := strings.TrimSuffix(d.Pattern[:star], ".")
	return strings.HasPrefix(name, prefix)
}

// Schema is the full field model for one collection.
type Schema struct {
	Fields              []Field
	DynamicFields       []DynamicField
	DefaultSortingField string
	FallbackFieldType   FieldType
	HasFallbackType     bool
	EnableNestedFields  bool
	SymbolsToIndex      []rune
	TokenSeparators     []rune

	byName map[string]*Field
}

// New builds a Schema from an ordered field list, separating concrete
// fields from dynamic (wildcard) ones and indexing concrete fields by
// name for O(1) lookup.
func New(fields []Field, defaultSortingField string) (*Schema, error) {
	s := &Schema{
		DefaultSortingField: defaultSortingField,
		byName:              make(map[string]*Field),
	}
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if strings.Contains(f.Name, "*") {
			s.DynamicFields = append(s.DynamicFields, DynamicField{Pattern: f.Name, Field: f})
			continue
		}
		fCopy := f
		s.Fields = append(s.Fields, fCopy)
		s.byName[f.Name] = &s.Fields[len(s.Fields)-1]
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Field looks up a concrete field by name.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// MatchDynamic returns the dynamic field definition matching name, if any.
func (s *Schema) MatchDynamic(name string) (Field, bool) {
	for _, d := range s.DynamicFields {
		if d.Matches(name) {
			return d.Field, true
		}
	}
	return Field{}, false
}

// Resolve returns the effective Field for a concrete document field name,
// checking explicit fields first, then dynamic field patterns.
func (s *Schema) Resolve(name string) (Field, bool) {
	if f, ok := s.byName[name]; ok {
		return *f, true
	}
	if f, ok := s.MatchDynamic(name); ok {
		f.Name = name
		return f, true
	}
	return Field{}, false
}

// Validate checks the cross-field invariants of spec §3.
func (s *Schema) Validate() error {
	if s.DefaultSortingField != "" {
		f, ok := s.byName[s.DefaultSortingField]
		if !ok {
			return glinterr.ClientError("default_sorting_field", "field %q not found in schema", s.DefaultSortingField)
		}
		if !f.IsNumSortField() {
			return glinterr.ClientError("default_sorting_field", "field %q must be a numeric or geopoint type", s.DefaultSortingField)
		}
		if f.Optional {
			return glinterr.ClientError("default_sorting_field", "field %q cannot be optional", s.DefaultSortingField)
		}
	}
	return nil
}

// AddField registers an additional field on an existing schema, as used
// when a document introduces a new dynamic-matched field that must be
// persisted into the collection's schema going forward.
func (s *Schema) AddField(f Field) {
	s.Fields = append(s.Fields, f)
	s.byName[f.Name] = &s.Fields[len(s.Fields)-1]
}
