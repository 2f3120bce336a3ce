package query

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/glint/pkg/filter"
	"github.com/cuemby/glint/pkg/glinterr"
)

// scoredHit is one candidate document carried through ranking, grouping,
// and pagination before being rendered into a Hit.
type scoredHit struct {
	seqID             uint32
	textMatchScore    int64
	groupFound        int
	vectorDistance    float32
	hasVectorDistance bool
	matchedTokens     map[string]map[string]bool // field -> normalized token -> matched
}

// Hit is one rendered search result.
type Hit struct {
	Document       map[string]any `json:"document"`
	Highlights     []Highlight    `json:"highlights,omitempty"`
	Highlight      map[string]any `json:"highlight,omitempty"`
	TextMatchScore int64          `json:"text_match,omitempty"`
	VectorDistance *float32       `json:"vector_distance,omitempty"`
}

// GroupedResult is one group_by bucket in the response.
type GroupedResult struct {
	GroupKey []string `json:"group_key"`
	Found    int      `json:"found"`
	Hits     []Hit    `json:"hits"`
}

// Result is the full do_search response shape of spec.md §4.5.
type Result struct {
	Found        int             `json:"found"`
	OutOf        int             `json:"out_of"`
	Page         int             `json:"page"`
	SearchTimeMs int64           `json:"search_time_ms"`
	Hits         []Hit           `json:"hits,omitempty"`
	GroupedHits  []GroupedResult `json:"grouped_hits,omitempty"`
	FacetCounts  []FacetCount    `json:"facet_counts,omitempty"`
	RequestParams Params         `json:"request_params"`
}

const defaultFilterTokenCap = 1000

// Execute runs one search against src, implementing spec.md §4.5's
// twelve-step pipeline: filter, match, score, sort, group, facet,
// paginate, highlight.
func Execute(params Params, src Source, lookup SourceLookup) (*Result, error) {
	start := time.Now()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	deadline := time.Time{}
	if params.SearchCutoffMs > 0 {
		deadline = start.Add(time.Duration(params.SearchCutoffMs) * time.Millisecond)
	}

	// Step 1: filter_by.
	var filtered []uint32
	hasFilter := strings.TrimSpace(params.FilterBy) != ""
	if hasFilter {
		tree, err := filter.Parse(params.FilterBy, defaultFilterTokenCap)
		if err != nil {
			return nil, err
		}
		if err := filter.TypeCheck(tree, src); err != nil {
			return nil, err
		}
		filtered, err = filter.Eval(tree, src)
		if err != nil {
			return nil, err
		}
	} else {
		filtered = src.AllSeqIDs()
	}

	// Step 2/3: tokenize q, expand each query_by field's vocabulary for
	// typo/prefix/infix candidates, and accumulate per-document per-field
	// match info.
	matchAll := strings.TrimSpace(params.Q) == "*" || strings.TrimSpace(params.Q) == ""
	filterSet := make(map[uint32]bool, len(filtered))
	for _, id := range filtered {
		filterSet[id] = true
	}

	agg := map[uint32]*docAggregate{}
	outOfBounds := false

	if !matchAll {
		tokens := tokenizeQuery(params.Q, params.PreSegmentedQuery)
		agg, outOfBounds = matchWithRelaxation(tokens, params, src, filterSet, deadline)
	} else {
		for _, id := range filtered {
			agg[id] = &docAggregate{}
		}
	}

	// Step 4/5/6: reduce per-field scores into one packed text match score
	// per document.
	hits := make([]*scoredHit, 0, len(agg))
	for seqID, a := range agg {
		if hasFilter && !filterSet[seqID] {
			continue
		}
		numFields := len(a.fieldScores)
		packed := make([]int64, 0, numFields)
		for _, s := range a.fieldScores {
			s.numMatchFields = numFields
			packed = append(packed, s.pack())
		}
		h := &scoredHit{seqID: seqID, matchedTokens: a.matchedTokens}
		if len(packed) > 0 {
			h.textMatchScore = combineScores(packed, params.TextMatchType)
		}
		hits = append(hits, h)
	}

	// Vector search (hybrid when q is also set).
	if params.VectorQuery != "" {
		if err := applyVectorQuery(params, src, &hits, agg, matchAll); err != nil {
			return nil, err
		}
	}

	// Pinned/hidden hits (curated results), applied before generic sort.
	pinned := map[uint32]int{}
	hidden := map[uint32]bool{}
	if params.EnableOverrides {
		for i, docID := range params.PinnedHits {
			if seqID, ok := resolveDocID(docID, src); ok {
				pinned[seqID] = i
			}
		}
		for _, docID := range params.HiddenHits {
			if seqID, ok := resolveDocID(docID, src); ok {
				hidden[seqID] = true
			}
		}
	}
	if len(hidden) > 0 {
		filteredHits := hits[:0:0]
		for _, h := range hits {
			if !hidden[h.seqID] {
				filteredHits = append(filteredHits, h)
			}
		}
		hits = filteredHits
	}

	// Step 7: sort_by.
	clauses, err := ParseSortBy(params.SortBy, src, lookup, defaultFilterTokenCap)
	if err != nil {
		return nil, err
	}
	if len(clauses) == 0 {
		clauses = []*sortClause{{kind: sortTextMatch, desc: true}}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		pi, iPinned := pinned[hits[i].seqID]
		pj, jPinned := pinned[hits[j].seqID]
		if iPinned || jPinned {
			if iPinned && jPinned {
				return pi < pj
			}
			return iPinned
		}
		for _, c := range clauses {
			vi, oki := c.sortKey(hits[i].seqID, hits[i], src, lookup)
			vj, okj := c.sortKey(hits[j].seqID, hits[j], src, lookup)
			if !oki && !okj {
				continue
			}
			if !oki {
				return false
			}
			if !okj {
				return true
			}
			if vi == vj {
				continue
			}
			if c.desc {
				return vi > vj
			}
			return vi < vj
		}
		return hits[i].seqID < hits[j].seqID
	})

	found := len(hits)

	// Step 8: facet_by, computed over the full ranked candidate set before
	// pagination.
	var facetCounts []FacetCount
	if len(params.FacetBy) > 0 {
		candidateIDs := make([]uint32, len(hits))
		for i, h := range hits {
			candidateIDs[i] = h.seqID
		}
		parsed := parseFacetBy(params.FacetBy)
		facetCounts, err = computeFacets(parsed, candidateIDs, src, params.FacetQuery, params.MaxFacetValues)
		if err != nil {
			return nil, err
		}
	}

	result := &Result{
		Found:         found,
		OutOf:         src.DocCount(),
		FacetCounts:   facetCounts,
		RequestParams: params,
	}

	// Step 9: group_by, or plain pagination.
	if len(params.GroupBy) > 0 {
		groups := buildGroups(hits, params.GroupBy, params.GroupLimit, params.GroupMissingValues, src)
		page, perPage := resolvePage(params)
		lo, hi := pageBounds(len(groups), page, perPage)
		for _, g := range groups[lo:hi] {
			gr := GroupedResult{Found: g.found}
			gr.GroupKey = strings.Split(g.key, "\x1f")
			for _, h := range g.hits {
				gr.Hits = append(gr.Hits, renderHit(h, src, params))
			}
			result.GroupedHits = append(result.GroupedHits, gr)
		}
		result.Page = page
	} else {
		page, _ := resolvePage(params)
		lo, hi := pageBoundsForParams(len(hits), params)
		for _, h := range hits[lo:hi] {
			result.Hits = append(result.Hits, renderHit(h, src, params))
		}
		result.Page = page
	}

	if outOfBounds {
		return result, glinterr.Timeout("search_cutoff_ms exceeded before all query_by fields were scanned")
	}

	result.SearchTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

// docAggregate accumulates one document's per-field match state while the
// query_by fields are scanned.
type docAggregate struct {
	fieldScores   []*textMatchScore
	matchedTokens map[string]map[string]bool
}

func matchField(field string, fieldIdx, weight int, allowPrefix bool, infixMode InfixMode, tokens []string, params Params, src Source, filterSet map[uint32]bool, agg map[uint32]*docAggregate) {
	perDoc := map[uint32]*fieldHitState{}
	for _, tok := range tokens {
		budget := typoBudget(len(tok), params.NumTypos, params.MinLen1Typo, params.MinLen2Typo)
		prefix := tok
		if len(prefix) > 1 {
			prefix = prefix[:1]
		}
		vocab := src.FieldTokens(field, prefix)
		candidates := expandToken(tok, vocab, budget, allowPrefix, infixMode, params.MaxCandidates, params.MaxExtraPrefix, params.MaxExtraSuffix)
		for _, c := range candidates {
			postings := src.FieldPostings(field, c.token)
			for _, seqID := range postings {
				if len(filterSet) > 0 && !filterSet[seqID] {
					continue
				}
				st, ok := perDoc[seqID]
				if !ok {
					st = &fieldHitState{}
					perDoc[seqID] = st
				}
				st.matchedQueryTokens++
				if c.distance == 0 && !c.isPrefix && !c.isInfix {
					st.exact++
				}
				if st.matchedTokens == nil {
					st.matchedTokens = map[string]bool{}
				}
				st.matchedTokens[c.token] = true
			}
		}
	}

	totalTokens := len(tokens)
	if totalTokens == 0 {
		totalTokens = 1
	}
	for seqID, st := range perDoc {
		a, ok := agg[seqID]
		if !ok {
			a = &docAggregate{matchedTokens: map[string]map[string]bool{}}
			agg[seqID] = a
		}
		coverage := st.matchedQueryTokens * 1024 / totalTokens
		exact := 0
		if st.matchedQueryTokens == totalTokens && st.exact == totalTokens {
			exact = 1
		}
		score := &textMatchScore{
			fieldRank:      fieldIdx,
			tokenCoverage:  coverage * weight,
			exactMatch:     exact,
			tokenProximity: tokenProximityScore(nil),
		}
		a.fieldScores = append(a.fieldScores, score)
		a.matchedTokens[field] = st.matchedTokens
	}
}

// matchWithRelaxation implements spec.md §4.5 step 7: run the full token
// set first; if it produces fewer hits than drop_tokens_threshold, drop
// tokens one at a time from the end drop_tokens_mode names and re-score,
// keeping whichever attempt found the most documents; if the best attempt
// still falls short of typo_tokens_threshold, retry that token set once
// more with the typo budget relaxed by one.
func matchWithRelaxation(tokens []string, params Params, src Source, filterSet map[uint32]bool, deadline time.Time) (map[uint32]*docAggregate, bool) {
	outOfBounds := false
	run := func(toks []string, extraTypo int) map[uint32]*docAggregate {
		agg := map[uint32]*docAggregate{}
		for fi, field := range params.QueryBy {
			if !deadline.IsZero() && time.Now().After(deadline) {
				outOfBounds = true
				break
			}
			weight := 1
			if fi < len(params.QueryByWeights) {
				weight = params.QueryByWeights[fi]
			}
			allowPrefix := fi < len(params.Prefix) && params.Prefix[fi]
			infixMode := InfixOff
			if fi < len(params.Infix) {
				infixMode = params.Infix[fi]
			}
			p := params
			if extraTypo > 0 {
				p.NumTypos += extraTypo
			}
			matchField(field, fi, weight, allowPrefix, infixMode, toks, p, src, filterSet, agg)
		}
		return agg
	}

	best := run(tokens, 0)
	bestTokens := tokens

	threshold := params.DropTokensThreshold
	if threshold <= 0 {
		threshold = 10
	}
	subset := tokens
	for len(best) < threshold && len(subset) > 1 && !outOfBounds {
		subset = dropOneToken(subset, params.DropTokensMode)
		candidate := run(subset, 0)
		if len(candidate) > len(best) {
			best = candidate
			bestTokens = subset
		}
	}

	typoThreshold := params.TypoTokensThreshold
	if len(best) < typoThreshold && !outOfBounds {
		if boosted := run(bestTokens, 1); len(boosted) > len(best) {
			best = boosted
		}
	}

	return best, outOfBounds
}

// dropOneToken removes the token that drop_tokens_mode names next: the
// rightmost remaining token for right_to_left (the default — later query
// words are assumed less discriminating), the leftmost for left_to_right.
func dropOneToken(tokens []string, mode DropTokensMode) []string {
	if len(tokens) <= 1 {
		return tokens
	}
	out := make([]string, len(tokens)-1)
	if mode == DropLeftToRight {
		copy(out, tokens[1:])
	} else {
		copy(out, tokens[:len(tokens)-1])
	}
	return out
}

type fieldHitState struct {
	matchedQueryTokens int
	exact              int
	matchedTokens      map[string]bool
}

// tokenizeQuery splits q into lowercase, punctuation-stripped tokens. When
// preSegmented is set, q is assumed already split on whitespace into
// exact search units (spec.md's pre_segmented_query) and no further
// splitting or join/split_join_tokens handling occurs.
func tokenizeQuery(q string, preSegmented bool) []string {
	fields := strings.Fields(q)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if preSegmented {
			out = append(out, strings.ToLower(f))
			continue
		}
		norm := normalizeToken(f)
		if norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

func resolveDocID(docID string, src Source) (uint32, bool) {
	for _, seqID := range src.AllSeqIDs() {
		if id, ok := src.SeqIDToDocID(seqID); ok && id == docID {
			return seqID, true
		}
	}
	return 0, false
}

func resolvePage(p Params) (page, perPage int) {
	perPage = p.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	page = p.Page
	if page <= 0 {
		page = 1
	}
	return page, perPage
}

// pageBounds resolves the [lo, hi) slice window for one page from page and
// perPage alone, clamped to total; offset and limit_hits are not applied
// here.
func pageBounds(total, page, perPage int) (lo, hi int) {
	lo = (page - 1) * perPage
	if lo < 0 {
		lo = 0
	}
	if lo > total {
		lo = total
	}
	hi = lo + perPage
	if hi > total {
		hi = total
	}
	return lo, hi
}

func pageBoundsForParams(total int, p Params) (lo, hi int) {
	if p.HasOffset {
		lo = p.Offset
		if lo < 0 {
			lo = 0
		}
		if lo > total {
			lo = total
		}
		perPage := p.PerPage
		if perPage <= 0 {
			perPage = 10
		}
		hi = lo + perPage
	} else {
		page, perPage := resolvePage(p)
		lo, hi = pageBounds(total, page, perPage)
		return lo, boundedHi(hi, total, p.LimitHits)
	}
	return lo, boundedHi(hi, total, p.LimitHits)
}

func boundedHi(hi, total int, limitHits int) int {
	if hi > total {
		hi = total
	}
	if limitHits > 0 && hi > limitHits {
		hi = limitHits
	}
	return hi
}

func renderHit(h *scoredHit, src Source, params Params) Hit {
	doc, err := src.GetDocBySeqID(h.seqID)
	if err != nil {
		doc = map[string]any{}
	}
	hit := Hit{Document: applyFieldSelection(doc, params.IncludeFields, params.ExcludeFields), TextMatchScore: h.textMatchScore}
	if h.hasVectorDistance {
		d := h.vectorDistance
		hit.VectorDistance = &d
	}
	if len(params.HighlightFields) > 0 || len(h.matchedTokens) > 0 {
		highlights := buildHighlights(h, doc, params)
		if params.EnableHighlightV1 {
			flat := make(map[string]any, len(highlights))
			for _, hl := range highlights {
				flat[hl.Field] = toFlatHighlight(&hl)
			}
			hit.Highlight = flat
		} else {
			hit.Highlights = highlights
		}
	}
	return hit
}

func buildHighlights(h *scoredHit, doc map[string]any, params Params) []Highlight {
	fields := params.HighlightFields
	if len(fields) == 0 {
		for f := range h.matchedTokens {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	fullFields := map[string]bool{}
	for _, f := range params.HighlightFullFields {
		fullFields[f] = true
	}
	var out []Highlight
	for _, field := range fields {
		tokens := h.matchedTokens[field]
		if len(tokens) == 0 {
			continue
		}
		value, ok := stringFieldValue(doc, field)
		if !ok {
			continue
		}
		hl := highlightField(field, value, tokens, params.HighlightStartTag, params.HighlightEndTag, params.SnippetThreshold, params.HighlightAffixNumTokens, fullFields[field])
		if hl != nil {
			out = append(out, *hl)
		}
	}
	return out
}

func stringFieldValue(doc map[string]any, field string) (string, bool) {
	parts := strings.Split(field, ".")
	var cur any = doc
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[p]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

func applyFieldSelection(doc map[string]any, include, exclude []string) map[string]any {
	if len(include) == 0 && len(exclude) == 0 {
		return doc
	}
	out := map[string]any{}
	if len(include) > 0 {
		for _, f := range include {
			if v, ok := doc[f]; ok {
				out[f] = v
			}
		}
		return out
	}
	excluded := map[string]bool{}
	for _, f := range exclude {
		excluded[f] = true
	}
	for k, v := range doc {
		if !excluded[k] {
			out[k] = v
		}
	}
	return out
}

// applyVectorQuery runs the nearest-neighbor search and merges its results
// into hits without combining the two scores: vector-only candidates are
// added with no text match component, and candidates already present keep
// their text match score and gain the distance. No rank fusion is done;
// the order comes from the caller's sort_by choice alone.
func applyVectorQuery(params Params, src Source, hits *[]*scoredHit, agg map[uint32]*docAggregate, matchAll bool) error {
	field, vec, k, err := parseVectorQuery(params.VectorQuery)
	if err != nil {
		return err
	}
	numDim, ok := src.VectorField(field)
	if !ok {
		return glinterr.ClientError(field, "field %q is not a vector field", field)
	}
	if numDim != len(vec) {
		return glinterr.ClientError(field, "query vector has %d dimensions, field expects %d", len(vec), numDim)
	}

	scored := src.VectorSearch(field, vec, k)
	existing := make(map[uint32]*scoredHit, len(*hits))
	for _, h := range *hits {
		existing[h.seqID] = h
	}
	for _, s := range scored {
		if h, ok := existing[s.ID]; ok {
			h.vectorDistance = s.Distance
			h.hasVectorDistance = true
			continue
		}
		h := &scoredHit{seqID: s.ID, vectorDistance: s.Distance, hasVectorDistance: true, matchedTokens: map[string]map[string]bool{}}
		*hits = append(*hits, h)
		existing[s.ID] = h
	}
	return nil
}

// parseVectorQuery parses "field:([v1, v2, ...], k:10)".
func parseVectorQuery(q string) (field string, vec []float32, k int, err error) {
	open := strings.IndexByte(q, '(')
	colon := strings.IndexByte(q, ':')
	if open < 0 || colon < 0 || colon > open || !strings.HasSuffix(q, ")") {
		return "", nil, 0, glinterr.ClientError("vector_query", "malformed vector_query %q", q)
	}
	field = strings.TrimSpace(q[:colon])
	inner := q[open+1 : len(q)-1]
	k = 10
	vecStart := strings.IndexByte(inner, '[')
	vecEnd := strings.IndexByte(inner, ']')
	if vecStart < 0 || vecEnd < 0 {
		return "", nil, 0, glinterr.ClientError("vector_query", "malformed vector_query %q", q)
	}
	for _, part := range strings.Split(inner[vecStart+1:vecEnd], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, ferr := strconv.ParseFloat(part, 64)
		if ferr != nil {
			return "", nil, 0, glinterr.ClientError("vector_query", "invalid vector component %q", part)
		}
		vec = append(vec, float32(f))
	}
	rest := inner[vecEnd+1:]
	for _, clause := range strings.Split(rest, ",") {
		clause = strings.TrimSpace(strings.TrimPrefix(clause, ","))
		if strings.HasPrefix(clause, "k:") {
			if n, nerr := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(clause, "k:")), 64); nerr == nil {
				k = int(n)
			}
		}
	}
	return field, vec, k, nil
}
