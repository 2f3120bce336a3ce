package filter

import (
	"strconv"
	"strings"

	"github.com/cuemby/glint/pkg/glinterr"
)

// IDField is the pseudo-field name spec.md §4.4's grammar table reserves for
// filtering directly on a document's user-facing id (filter_by=id:x or
// id:[id1,id2,...]), resolved through the collection's id→seq-id table
// instead of a normal schema-indexed field.
const IDField = "id"

// CompareOp is the comparison a leaf applies between a field and its
// operand(s).
type CompareOp int

const (
	OpContains CompareOp = iota
	OpExact
	OpEq
	OpNeq
	OpGt
	OpGte
	OpLt
	OpLte
	OpRange
	OpIn
	OpNotIn
	OpGeoRadius
	OpGeoPolygon
)

// GeoValue holds a parsed geopoint radius or polygon operand.
type GeoValue struct {
	Lat, Lng  float64
	RadiusKM  float64
	Polygon   [][2]float64
}

// Value is the operand a leaf compares a field against. Only the fields
// relevant to Op are populated.
type Value struct {
	Str     string
	Num     float64
	HasNum  bool
	Bool    bool
	HasBool bool
	RangeLo float64
	RangeHi float64
	Set     []string
	Geo     *GeoValue
}

// Leaf is a single field predicate, or a reference sub-filter evaluated
// against another collection's documents.
type Leaf struct {
	Field string
	Op    CompareOp
	Value Value

	IsReference   bool
	RefCollection string
	RefInner      *Node
}

// parseLeaf turns one leaf token's text into a Leaf. Reference leaves take
// the special form `$collection(inner filter)` with no leading field name,
// per the nested reference-filter scenario.
func parseLeaf(text string, tokenCap int) (*Leaf, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, glinterr.ClientError("filter_by", "empty filter clause")
	}
	if text[0] == '$' {
		return parseReferenceLeaf(text, tokenCap)
	}

	idx := strings.IndexByte(text, ':')
	if idx < 0 {
		return nil, glinterr.ClientError("filter_by", "malformed filter clause %q", text)
	}
	field := strings.TrimSpace(text[:idx])
	rest := strings.TrimSpace(text[idx+1:])
	if field == "" {
		return nil, glinterr.ClientError("filter_by", "malformed filter clause %q", text)
	}

	leaf := &Leaf{Field: field}

	op, rest := extractOp(rest)
	leaf.Op = op

	switch {
	case strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")"):
		geo, err := parseGeoValue(rest[1 : len(rest)-1])
		if err != nil {
			return nil, err
		}
		leaf.Value.Geo = geo
		if op == OpContains {
			leaf.Op = OpGeoRadius
			if geo.Polygon != nil {
				leaf.Op = OpGeoPolygon
			}
		}
	case strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]"):
		inner := rest[1 : len(rest)-1]
		if strings.Contains(inner, "..") {
			parts := strings.SplitN(inner, "..", 2)
			lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			if err != nil {
				return nil, glinterr.ClientError(field, "invalid range lower bound %q", parts[0])
			}
			hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err != nil {
				return nil, glinterr.ClientError(field, "invalid range upper bound %q", parts[1])
			}
			leaf.Value.RangeLo, leaf.Value.RangeHi = lo, hi
			leaf.Op = OpRange
		} else {
			set := splitUnquoted(inner, ',')
			for i, s := range set {
				set[i] = unquote(strings.TrimSpace(s))
			}
			leaf.Value.Set = set
			if op == OpNeq {
				leaf.Op = OpNotIn
			} else {
				leaf.Op = OpIn
			}
		}
	default:
		leaf.Value.Str = unquote(rest)
		if f, err := strconv.ParseFloat(leaf.Value.Str, 64); err == nil {
			leaf.Value.Num = f
			leaf.Value.HasNum = true
		}
		if leaf.Value.Str == "true" || leaf.Value.Str == "false" {
			leaf.Value.Bool = leaf.Value.Str == "true"
			leaf.Value.HasBool = true
		}
	}

	return leaf, nil
}

// extractOp peels a leading comparison operator off rest, defaulting to
// OpContains (field-type-dependent: exact-equality for numerics/booleans,
// token-containment for strings) when none is present.
func extractOp(rest string) (CompareOp, string) {
	switch {
	case strings.HasPrefix(rest, ">="):
		return OpGte, strings.TrimSpace(rest[2:])
	case strings.HasPrefix(rest, "<="):
		return OpLte, strings.TrimSpace(rest[2:])
	case strings.HasPrefix(rest, "!="):
		return OpNeq, strings.TrimSpace(rest[2:])
	case strings.HasPrefix(rest, "="):
		return OpEq, strings.TrimSpace(rest[1:])
	case strings.HasPrefix(rest, ">"):
		return OpGt, strings.TrimSpace(rest[1:])
	case strings.HasPrefix(rest, "<"):
		return OpLt, strings.TrimSpace(rest[1:])
	default:
		return OpContains, rest
	}
}

// parseGeoValue parses "lat, lng, radius km" or a polygon point list
// "(lat1, lng1), (lat2, lng2), ...".
func parseGeoValue(inner string) (*GeoValue, error) {
	if strings.HasPrefix(strings.TrimSpace(inner), "(") {
		var pts [][2]float64
		pairs := splitGeoPoints(inner)
		for _, p := range pairs {
			parts := strings.Split(p, ",")
			if len(parts) != 2 {
				continue
			}
			lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err1 != nil || err2 != nil {
				return nil, glinterr.ClientError("filter_by", "invalid polygon vertex %q", p)
			}
			pts = append(pts, [2]float64{lat, lng})
		}
		if len(pts) > 0 {
			return &GeoValue{Polygon: pts}, nil
		}
	}

	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return nil, glinterr.ClientError("filter_by", "expected lat, lng, radius in %q", inner)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, glinterr.ClientError("filter_by", "invalid latitude %q", parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, glinterr.ClientError("filter_by", "invalid longitude %q", parts[1])
	}
	radiusField := strings.TrimSpace(parts[2])
	radiusField = strings.TrimSuffix(radiusField, "km")
	radiusField = strings.TrimSuffix(strings.TrimSpace(radiusField), "mi")
	radiusKM, err := strconv.ParseFloat(strings.TrimSpace(radiusField), 64)
	if err != nil {
		return nil, glinterr.ClientError("filter_by", "invalid radius %q", parts[2])
	}
	if strings.HasSuffix(strings.TrimSpace(parts[2]), "mi") {
		radiusKM *= 1.60934
	}
	return &GeoValue{Lat: lat, Lng: lng, RadiusKM: radiusKM}, nil
}

// splitGeoPoints splits "(a,b), (c,d)" style polygon text into ["a,b",
// "c,d"], stripping the grouping parens.
func splitGeoPoints(s string) []string {
	s = strings.TrimSpace(s)
	var out []string
	depth := 0
	var buf strings.Builder
	for _, r := range s {
		switch r {
		case '(':
			depth++
			continue
		case ')':
			depth--
			if depth == 0 && buf.Len() > 0 {
				out = append(out, buf.String())
				buf.Reset()
			}
			continue
		case ',':
			if depth == 0 {
				continue
			}
		}
		if depth > 0 {
			buf.WriteRune(r)
		}
	}
	return out
}

// splitUnquoted splits s on sep, ignoring separators inside backtick
// quotes.
func splitUnquoted(s string, sep byte) []string {
	var out []string
	var buf strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '`':
			inQuote = !inQuote
			buf.WriteByte(c)
		case c == sep && !inQuote:
			out = append(out, buf.String())
			buf.Reset()
		default:
			buf.WriteByte(c)
		}
	}
	out = append(out, buf.String())
	return out
}

// unquote strips a matching pair of backticks, leaving the interior
// untouched so values can contain commas, colons, or parens verbatim.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseReferenceLeaf parses "$collection(inner filter)" into a Leaf whose
// RefInner is the recursively-parsed boolean tree of the inner expression.
func parseReferenceLeaf(text string, tokenCap int) (*Leaf, error) {
	open := strings.IndexByte(text, '(')
	if open < 0 || !strings.HasSuffix(text, ")") {
		return nil, glinterr.ClientError("filter_by", "malformed reference filter %q", text)
	}
	coll := strings.TrimSpace(text[1:open])
	if coll == "" {
		return nil, glinterr.ClientError("filter_by", "reference filter missing collection name in %q", text)
	}
	inner := text[open+1 : len(text)-1]
	tree, err := Parse(inner, tokenCap)
	if err != nil {
		return nil, err
	}
	return &Leaf{
		IsReference:   true,
		RefCollection: coll,
		RefInner:      tree,
	}, nil
}
