package query

import "sort"

// groupedHit collects the top group_limit hits sharing one group_by value
// combination, per spec.md §4.5 step 8.
type groupedHit struct {
	key    string
	hits   []*scoredHit
	found  int // total number of documents in this group before truncation to group_limit
	missed bool
}

// groupKey joins one document's group_by field values into a single key.
// A document missing any group_by field either falls into the shared
// "missing values" bucket (groupMissingValues true) or is excluded from
// grouping entirely (returned ok=false).
func groupKey(seqID uint32, groupBy []string, src Source, groupMissingValues bool) (string, bool) {
	var parts []string
	for _, field := range groupBy {
		vals := src.FieldFacetValues(field, seqID)
		if len(vals) == 0 {
			if !groupMissingValues {
				return "", false
			}
			parts = append(parts, "\x00missing\x00")
			continue
		}
		parts = append(parts, vals...)
	}
	key := ""
	for i, p := range parts {
		if i > 0 {
			key += "\x1f"
		}
		key += p
	}
	return key, true
}

// buildGroups partitions already-scored-and-sorted hits into groups,
// keeping each group's hits in their incoming (already best-first) order
// and truncating to groupLimit per group. Group order in the returned
// slice follows each group's best hit, matching the overall ranking.
func buildGroups(hits []*scoredHit, groupBy []string, groupLimit int, groupMissingValues bool, src Source) []*groupedHit {
	index := map[string]*groupedHit{}
	var order []*groupedHit
	for _, h := range hits {
		key, ok := groupKey(h.seqID, groupBy, src, groupMissingValues)
		if !ok {
			continue
		}
		g, exists := index[key]
		if !exists {
			g = &groupedHit{key: key}
			index[key] = g
			order = append(order, g)
		}
		g.found++
		if groupLimit <= 0 || len(g.hits) < groupLimit {
			g.hits = append(g.hits, h)
		}
	}
	return order
}

// flattenGroups returns the grouped hits back into a single ranked slice
// for callers that only want pagination over group leaders (e.g. facet
// computation still runs over the full ungrouped candidate set).
func flattenGroups(groups []*groupedHit) []*scoredHit {
	var out []*scoredHit
	for _, g := range groups {
		out = append(out, g.hits...)
	}
	return out
}

// sortGroupsByBestHit is a defensive re-sort used only when group
// construction is fed hits out of rank order (e.g. merged multi-source
// union search results).
func sortGroupsByBestHit(groups []*groupedHit, less func(a, b *scoredHit) bool) {
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].hits) == 0 || len(groups[j].hits) == 0 {
			return len(groups[i].hits) > len(groups[j].hits)
		}
		return less(groups[i].hits[0], groups[j].hits[0])
	})
}
