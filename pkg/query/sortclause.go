package query

import (
	"strconv"
	"strings"

	"github.com/cuemby/glint/pkg/filter"
	"github.com/cuemby/glint/pkg/geocell"
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/schema"
)

// sortKind discriminates the sort clause forms spec.md §4.3's "Sort-field
// semantics" paragraph enumerates.
type sortKind int

const (
	sortField sortKind = iota
	sortTextMatch
	sortEval
	sortSeqID
	sortGroupFound
	sortVectorDistance
	sortReference
	sortGeoProximity
)

// evalBranch is one "<filter>:<score>" term inside an _eval(...) clause.
type evalBranch struct {
	tree  *filter.Node
	score int64
}

// sortClause is one parsed, validated sort_by term.
type sortClause struct {
	kind sortKind
	desc bool

	field string // sortField

	evalBranches []evalBranch // sortEval

	refCollection string     // sortReference
	refField      *sortClause // sortReference, recursively validated against the other collection

	geoLat, geoLng   float64 // sortGeoProximity
	geoExcludeRadius float64
	geoPrecisionKM   float64
	hasExcludeRadius bool
	hasPrecision     bool
}

const maxSortClauses = 3

// ParseSortBy splits sort_by on top-level commas (respecting parens) into
// up to three clauses, each validated against src's schema (and, for
// reference/geopoint clauses, against the named field's capabilities).
func ParseSortBy(sortBy string, src Source, lookup SourceLookup, tokenCap int) ([]*sortClause, error) {
	sortBy = strings.TrimSpace(sortBy)
	if sortBy == "" {
		return nil, nil
	}
	parts := splitTopLevel(sortBy, ',')
	if len(parts) > maxSortClauses {
		return nil, glinterr.ClientError("sort_by", "at most %d sort clauses are allowed", maxSortClauses)
	}
	out := make([]*sortClause, 0, len(parts))
	for _, part := range parts {
		c, err := parseSortClause(strings.TrimSpace(part), src, lookup, tokenCap)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func splitTopLevel(s string, sep byte) []string {
	var out []string
	var buf strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		}
		if c == sep && depth == 0 {
			out = append(out, buf.String())
			buf.Reset()
			continue
		}
		buf.WriteByte(c)
	}
	out = append(out, buf.String())
	return out
}

func parseSortClause(expr string, src Source, lookup SourceLookup, tokenCap int) (*sortClause, error) {
	lastColon := strings.LastIndexByte(expr, ':')
	if lastColon < 0 {
		return nil, glinterr.ClientError("sort_by", "malformed sort clause %q", expr)
	}
	head := strings.TrimSpace(expr[:lastColon])
	dirTok := strings.ToLower(strings.TrimSpace(expr[lastColon+1:]))
	var desc bool
	switch dirTok {
	case "asc":
		desc = false
	case "desc":
		desc = true
	default:
		return nil, glinterr.ClientError("sort_by", "sort direction must be asc or desc, got %q", dirTok)
	}

	switch {
	case head == "_text_match":
		return &sortClause{kind: sortTextMatch, desc: desc}, nil
	case head == "_seq_id":
		return &sortClause{kind: sortSeqID, desc: desc}, nil
	case head == "_group_found":
		return &sortClause{kind: sortGroupFound, desc: desc}, nil
	case head == "_vector_distance":
		return &sortClause{kind: sortVectorDistance, desc: desc}, nil
	case strings.HasPrefix(head, "_eval(") && strings.HasSuffix(head, ")"):
		return parseEvalClause(head[len("_eval(") : len(head)-1], desc, src, tokenCap)
	case strings.HasPrefix(head, "$") && strings.Contains(head, "("):
		return parseReferenceSortClause(head, desc, lookup, tokenCap)
	default:
		return parseFieldOrGeoClause(head, desc, src)
	}
}

func parseEvalClause(inner string, desc bool, src Source, tokenCap int) (*sortClause, error) {
	branches := splitTopLevel(inner, ',')
	c := &sortClause{kind: sortEval, desc: desc}
	for _, b := range branches {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		exprPart, scorePart := b, "1"
		if idx := strings.LastIndexByte(b, ':'); idx >= 0 && isInt(strings.TrimSpace(b[idx+1:])) {
			exprPart, scorePart = b[:idx], b[idx+1:]
		}
		tree, err := filter.Parse(strings.TrimSpace(exprPart), tokenCap)
		if err != nil {
			return nil, err
		}
		if err := filter.TypeCheck(tree, src); err != nil {
			return nil, err
		}
		score, _ := strconv.ParseInt(strings.TrimSpace(scorePart), 10, 64)
		c.evalBranches = append(c.evalBranches, evalBranch{tree: tree, score: score})
	}
	return c, nil
}

func isInt(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func parseReferenceSortClause(head string, desc bool, lookup SourceLookup, tokenCap int) (*sortClause, error) {
	open := strings.IndexByte(head, '(')
	if open < 0 || !strings.HasSuffix(head, ")") {
		return nil, glinterr.ClientError("sort_by", "malformed reference sort clause %q", head)
	}
	coll := strings.TrimSpace(head[1:open])
	inner := head[open+1 : len(head)-1]
	if lookup == nil {
		return nil, glinterr.ClientError("sort_by", "reference sort clauses require a collection lookup")
	}
	other, err := lookup.GetSource(coll)
	if err != nil {
		return nil, err
	}
	innerClause, err := parseSortClause(inner, other, lookup, tokenCap)
	if err != nil {
		return nil, err
	}
	return &sortClause{kind: sortReference, desc: desc, refCollection: coll, refField: innerClause}, nil
}

func parseFieldOrGeoClause(head string, desc bool, src Source) (*sortClause, error) {
	if strings.Contains(head, "(") && strings.HasSuffix(head, ")") {
		open := strings.IndexByte(head, '(')
		field := strings.TrimSpace(head[:open])
		f, ok := src.Resolve(field)
		if !ok || f.Type != schema.TypeGeopoint {
			return nil, glinterr.ClientError(field, "geopoint proximity sort requires a geopoint field")
		}
		c := &sortClause{kind: sortGeoProximity, desc: desc, field: field}
		args := splitTopLevel(head[open+1:len(head)-1], ',')
		if len(args) >= 2 {
			lat, err1 := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
			lng, err2 := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err1 != nil || err2 != nil {
				return nil, glinterr.ClientError(field, "invalid geopoint proximity anchor in %q", head)
			}
			c.geoLat, c.geoLng = lat, lng
		}
		for _, extra := range args[min(2, len(args)):] {
			kv := strings.SplitN(extra, ":", 2)
			if len(kv) != 2 {
				continue
			}
			key := strings.TrimSpace(kv[0])
			val, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
			if err != nil {
				continue
			}
			switch key {
			case "exclude_radius":
				c.geoExcludeRadius, c.hasExcludeRadius = val, true
			case "precision":
				c.geoPrecisionKM, c.hasPrecision = val, true
			}
		}
		return c, nil
	}

	f, ok := src.Resolve(head)
	if !ok {
		return nil, glinterr.ClientError(head, "sort field %q not found in schema", head)
	}
	if !f.IsSortable() && f.Type != schema.TypeGeopoint {
		return nil, glinterr.ClientError(head, "field %q is not sortable", head)
	}
	return &sortClause{kind: sortField, desc: desc, field: head}, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// sortKey resolves one document's value for this clause, for use in the
// final composite comparator. Missing-value policy: a document missing the
// value sorts last regardless of direction (matching original_source's
// int64 sentinel-minimum convention for "no value").
func (c *sortClause) sortKey(seqID uint32, hit *scoredHit, src Source, lookup SourceLookup) (int64, bool) {
	switch c.kind {
	case sortTextMatch:
		return hit.textMatchScore, true
	case sortSeqID:
		return int64(seqID), true
	case sortGroupFound:
		return int64(hit.groupFound), true
	case sortVectorDistance:
		return floatSortBits(float64(hit.vectorDistance)), hit.hasVectorDistance
	case sortEval:
		for _, b := range c.evalBranches {
			matches, err := filter.Eval(b.tree, src)
			if err != nil {
				continue
			}
			if containsSeq(matches, seqID) {
				return b.score, true
			}
		}
		return 0, true
	case sortGeoProximity:
		lat, lng, ok := src.FieldGeoPoint(c.field, seqID)
		if !ok {
			return 0, false
		}
		d := geocell.HaversineKM(c.geoLat, c.geoLng, lat, lng)
		if c.hasExcludeRadius && d <= c.geoExcludeRadius {
			d = 0
		}
		if c.hasPrecision && c.geoPrecisionKM > 0 {
			d = float64(int64(d/c.geoPrecisionKM)) * c.geoPrecisionKM
		}
		return floatSortBits(d), true
	case sortReference:
		if lookup == nil {
			return 0, false
		}
		other, err := lookup.GetSource(c.refCollection)
		if err != nil {
			return 0, false
		}
		return c.refField.sortKey(seqID, hit, other, lookup)
	default:
		v, ok := src.FieldSortValue(c.field, seqID)
		return v, ok
	}
}

func containsSeq(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// floatSortBits maps a float64 to a monotonic int64 ordering so the same
// int64 comparator used for every other sort kind can compare it.
func floatSortBits(f float64) int64 {
	bits := int64(f * 1e6)
	return bits
}
