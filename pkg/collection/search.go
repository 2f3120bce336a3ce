package collection

import (
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/query"
)

// GetSource resolves name to a *Collection exposed as a query.Source,
// implementing query.SourceLookup for reference sort clauses and
// multi-collection union search.
func (m *Manager) GetSource(name string) (query.Source, error) {
	c, err := m.GetCollection(name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DoSearch runs one search against collection name, merging embedded and
// preset parameters (spec.md §4.2's precedence) before handing off to
// pkg/query's executor. A node that hasn't caught up with the leader's
// raft log yet (per pkg/readiness) refuses the search rather than risk
// serving stale results.
func (m *Manager) DoSearch(name string, params, embedded query.Params) (*query.Result, error) {
	if err := m.checkReadReady(); err != nil {
		return nil, err
	}
	c, err := m.GetCollection(name)
	if err != nil {
		return nil, err
	}
	merged := query.MergeEmbedded(params, embedded)

	// Single-preset parameters, lower priority and non-destructive
	// (spec.md §4.2).
	if merged.Preset != "" {
		preset, err := m.GetPreset(merged.Preset)
		if err != nil {
			return nil, err
		}
		merged = query.ApplyPreset(merged, preset)
	}

	// Named stopword set: strip its entries from q before tokenizing.
	if merged.Stopwords != "" {
		words, err := m.GetStopwords(merged.Stopwords)
		if err != nil {
			return nil, err
		}
		merged.Q = stripStopwords(merged.Q, words)
	}

	// Synonym sets (spec.md §2's load protocol, §6's enable_synonyms):
	// expand q with every triggered synonym's alternative terms before
	// tokenizing, so either phrasing can match.
	if merged.EnableSynonyms {
		rules := m.ListSynonyms(name)
		merged.Q = expandSynonyms(merged.Q, rules, merged.SynonymPrefix, merged.SynonymNumTypos)
	}

	// Overrides (§4.5 step 9): rules whose Query matches the raw q inject
	// pinned/hidden hits and fill in filter_by/sort_by left unset by the
	// caller.
	if merged.EnableOverrides {
		for _, o := range m.MatchingOverrides(name, merged.Q) {
			merged.PinnedHits = append(merged.PinnedHits, o.PinnedHits...)
			merged.HiddenHits = append(merged.HiddenHits, o.HiddenHits...)
			if merged.FilterBy == "" && o.FilterBy != "" {
				merged.FilterBy = o.FilterBy
			}
			if merged.SortBy == "" && o.SortBy != "" {
				merged.SortBy = o.SortBy
			}
		}
	}

	return query.Execute(merged, c, m)
}

func (m *Manager) checkReadReady() error {
	m.mu.RLock()
	g := m.gate
	m.mu.RUnlock()
	if g != nil && !g.IsReadReady() {
		return glinterr.Unavailable("node has not caught up with the cluster yet")
	}
	return nil
}

// SearchSpec is one named search within a do_search multi-search or
// federated union request.
type SearchSpec struct {
	Collection string
	Params     query.Params
}

// DoUnion runs every search in searches against its own collection and
// concatenates the ranked hits into a single result, re-sorted by text
// match score, implementing the union_search surface of spec.md §4.5.
func (m *Manager) DoUnion(searches []SearchSpec) (*query.Result, error) {
	if len(searches) == 0 {
		return nil, glinterr.ClientError("searches", "union search requires at least one search")
	}
	merged := &query.Result{RequestParams: searches[0].Params}
	for _, s := range searches {
		res, err := m.DoSearch(s.Collection, s.Params, query.Params{})
		if err != nil {
			return nil, err
		}
		merged.Hits = append(merged.Hits, res.Hits...)
		merged.Found += res.Found
		merged.OutOf += res.OutOf
	}
	sortUnionHits(merged.Hits)
	return merged, nil
}

func sortUnionHits(hits []query.Hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j-1].TextMatchScore < hits[j].TextMatchScore; j-- {
			hits[j-1], hits[j] = hits[j], hits[j-1]
		}
	}
}
