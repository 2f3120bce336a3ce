package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/index"
	"github.com/cuemby/glint/pkg/schema"
)

// FacetCount is one facet response entry: a field name and, for each of its
// values (or range labels), how many of the filtered result set carry it.
type FacetCount struct {
	FieldName string        `json:"field_name"`
	Counts    []FacetValueCount `json:"counts"`
}

// FacetValueCount pairs one facet value with its count, matching
// facet_counts response shape.
type FacetValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// facetRangeBucket is one "label:[lo..hi]" range clause parsed out of a
// facet_by: field(label:[lo..hi], ...) specifier.
type facetRangeBucket struct {
	label  string
	lo, hi float64
}

// parsedFacet is one facet_by entry, possibly carrying numeric range
// buckets.
type parsedFacet struct {
	field   string
	buckets []facetRangeBucket
}

// parseFacetBy splits the facet_by parameter into per-field specs,
// recognizing the "field(label:[lo..hi], ...)" range-bucket form.
func parseFacetBy(facetBy []string) []parsedFacet {
	out := make([]parsedFacet, 0, len(facetBy))
	for _, spec := range facetBy {
		spec = strings.TrimSpace(spec)
		open := strings.IndexByte(spec, '(')
		if open < 0 || !strings.HasSuffix(spec, ")") {
			out = append(out, parsedFacet{field: spec})
			continue
		}
		field := strings.TrimSpace(spec[:open])
		inner := spec[open+1 : len(spec)-1]
		pf := parsedFacet{field: field}
		for _, clause := range splitTopLevel(inner, ',') {
			clause = strings.TrimSpace(clause)
			idx := strings.IndexByte(clause, ':')
			if idx < 0 {
				continue
			}
			label := strings.TrimSpace(clause[:idx])
			rangeExpr := strings.TrimSpace(clause[idx+1:])
			rangeExpr = strings.TrimPrefix(rangeExpr, "[")
			rangeExpr = strings.TrimSuffix(rangeExpr, "]")
			parts := strings.SplitN(rangeExpr, "..", 2)
			if len(parts) != 2 {
				continue
			}
			lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err1 != nil || err2 != nil {
				continue
			}
			pf.buckets = append(pf.buckets, facetRangeBucket{label: label, lo: lo, hi: hi})
		}
		out = append(out, pf)
	}
	return out
}

// computeFacets builds the facet_counts response for every requested
// facet field, restricted to candidateDocs (the final filtered+matched
// result set before pagination), per spec.md §4.5 step 10.
func computeFacets(parsed []parsedFacet, candidateDocs []uint32, src Source, facetQuery string, maxValues int) ([]FacetCount, error) {
	var out []FacetCount
	for _, pf := range parsed {
		f, ok := src.Resolve(pf.field)
		if !ok {
			return nil, glinterr.ClientError(pf.field, "facet field %q not found in schema", pf.field)
		}
		if !f.Facet {
			return nil, glinterr.ClientError(pf.field, "field %q is not declared as a facet", pf.field)
		}

		if len(pf.buckets) > 0 && f.HasNumericalIndex() {
			out = append(out, facetNumericRanges(pf, candidateDocs, src))
			continue
		}

		counts := src.FieldFacetCounts(pf.field, candidateDocs)
		if facetQuery != "" {
			counts = filterFacetCounts(counts, facetQuery)
		}
		if maxValues > 0 && len(counts) > maxValues {
			counts = counts[:maxValues]
		}
		fc := FacetCount{FieldName: pf.field}
		for _, c := range counts {
			fc.Counts = append(fc.Counts, FacetValueCount{Value: c.Value, Count: c.Count})
		}
		out = append(out, fc)
	}
	return out, nil
}

func filterFacetCounts(counts []index.FacetCount, query string) []index.FacetCount {
	query = strings.ToLower(query)
	out := counts[:0:0]
	for _, c := range counts {
		if strings.Contains(strings.ToLower(c.Value), query) {
			out = append(out, c)
		}
	}
	return out
}

func facetNumericRanges(pf parsedFacet, candidateDocs []uint32, src Source) FacetCount {
	fc := FacetCount{FieldName: pf.field}
	f, _ := src.Resolve(pf.field)
	for _, bucket := range pf.buckets {
		n := 0
		for _, seqID := range candidateDocs {
			v, ok := src.FieldSortValue(pf.field, seqID)
			if !ok {
				continue
			}
			fv := float64(v)
			if f.Type == schema.TypeFloat {
				fv = numericSortValueToFloat(v)
			}
			if fv >= bucket.lo && fv <= bucket.hi {
				n++
			}
		}
		fc.Counts = append(fc.Counts, FacetValueCount{Value: bucket.label, Count: n})
	}
	return fc
}

// numericSortValueToFloat reverses index.FloatToOrderedInt64 for a sort
// value stored from a float field. Int fields store the original number,
// which facetNumericRanges converts directly instead of calling this.
func numericSortValueToFloat(v int64) float64 {
	return index.OrderedInt64ToFloat(v)
}

// sortFacetValues orders facet counts, used when building a deterministic
// response (FieldFacetCounts already sorts, this is kept for callers that
// merge several sources, e.g. multi-collection union search).
func sortFacetValues(counts []FacetValueCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Value < counts[j].Value
	})
}
