package query

import "github.com/cuemby/glint/pkg/glinterr"

// TextMatchType selects how per-field text-match scores combine into one
// document score when a query spans several query_by fields.
type TextMatchType int

const (
	TextMatchMaxScore TextMatchType = iota
	TextMatchSumScore
)

// DropTokensMode selects which end of the token list drop_tokens_threshold
// relaxation removes tokens from first.
type DropTokensMode int

const (
	DropRightToLeft DropTokensMode = iota
	DropLeftToRight
)

// Params is the full recognized search parameter set of spec.md §6. Zero
// values are not valid defaults for every field, so DefaultParams returns
// a Params with the documented defaults filled in.
type Params struct {
	Q       string
	QueryBy []string
	// QueryByWeights holds one weight per QueryBy entry (defaulting to 1).
	QueryByWeights []int

	Prefix []bool
	Infix  []InfixMode

	FilterBy string
	SortBy   string

	FacetBy            []string
	FacetQuery         string
	FacetQueryNumTypos int
	MaxFacetValues     int
	FacetReturnParent  []string
	FacetStrategy      string
	FacetSamplePercent int
	FacetSampleThreshold int

	GroupBy            []string
	GroupLimit         int
	GroupMissingValues bool

	IncludeFields []string
	ExcludeFields []string

	LimitHits int
	PerPage   int
	Page      int
	Offset    int
	HasOffset bool

	PinnedHits []string
	HiddenHits []string

	EnableOverrides      bool
	FilterCuratedHits    int
	EnableSynonyms       bool
	SynonymPrefix        bool
	SynonymNumTypos      int

	MaxCandidates int
	NumTypos      int
	MinLen1Typo   int
	MinLen2Typo   int

	DropTokensThreshold int
	TypoTokensThreshold int
	DropTokensMode      DropTokensMode

	SplitJoinTokens            string
	PrioritizeExactMatch       bool
	PrioritizeTokenPosition    bool
	PrioritizeNumMatchingFields bool
	PreSegmentedQuery          bool
	ExhaustiveSearch           bool

	SearchCutoffMs int

	SnippetThreshold         int
	HighlightAffixNumTokens  int
	HighlightFullFields      []string
	HighlightFields          []string
	HighlightStartTag        string
	HighlightEndTag          string
	EnableHighlightV1        bool

	TextMatchType TextMatchType

	MaxExtraPrefix int
	MaxExtraSuffix int

	VectorQuery string

	EnableTyposForNumericalTokens      bool
	EnableTyposForAlphaNumericalTokens bool

	EnableLazyFilter         bool
	MaxFilterByCandidates    int
	FilterByMaxOps           int
	RerankHybridMatches      bool

	RemoteEmbeddingTimeoutMs int
	RemoteEmbeddingNumTries  int

	Stopwords    string
	OverrideTags []string

	// Preset names a saved parameter bundle (spec.md §4.2, §6) resolved and
	// layered underneath the explicit/embedded params by the caller before
	// Execute ever sees it; Execute itself never looks this up.
	Preset string

	EnableAnalytics    bool
	ValidateFieldNames bool
}

// InfixMode governs whether a query_by field is also matched against
// infix (substring) candidates.
type InfixMode int

const (
	InfixOff InfixMode = iota
	InfixAlways
	InfixFallback
)

// DefaultParams returns the documented defaults of spec.md §6.
func DefaultParams() Params {
	return Params{
		FacetQueryNumTypos: 2,
		MaxFacetValues:     10,
		FacetStrategy:      "automatic",
		FacetSamplePercent: 100,
		GroupLimit:         3,
		GroupMissingValues: true,
		LimitHits:          0, // 0 means unbounded
		PerPage:            10,
		EnableOverrides:    true,
		FilterCuratedHits:  2,
		EnableSynonyms:     true,
		NumTypos:           2,
		MinLen1Typo:        4,
		MinLen2Typo:        7,
		DropTokensThreshold: 10,
		TypoTokensThreshold: 1,
		DropTokensMode:      DropRightToLeft,
		SplitJoinTokens:     "fallback",
		PrioritizeExactMatch:        true,
		PrioritizeNumMatchingFields: true,
		SearchCutoffMs:              30000,
		SnippetThreshold:            30,
		HighlightAffixNumTokens:     4,
		HighlightStartTag:           "<mark>",
		HighlightEndTag:             "</mark>",
		EnableHighlightV1:           true,
		TextMatchType:               TextMatchMaxScore,
		MaxExtraPrefix:              -1, // -1 means unbounded
		MaxExtraSuffix:              -1,
		RemoteEmbeddingTimeoutMs:    5000,
		RemoteEmbeddingNumTries:     2,
		EnableTyposForNumericalTokens:      true,
		EnableTyposForAlphaNumericalTokens: true,
		EnableAnalytics:     true,
		ValidateFieldNames:  true,
		Prefix:              []bool{true},
	}
}

// RemoteEmbeddingTimeoutMs and RemoteEmbeddingNumTries are part of the
// recognized parameter set (§6) but have no effect here: external
// embedders are a non-goal (spec.md §1). They round-trip through Params so
// a caller merging embedded/preset parameters never loses the key.

// mergeNonEmpty returns p with each of Q, QueryBy, FilterBy, SortBy,
// FacetBy, PerPage, Page and Offset replaced by override's value wherever
// override sets it (non-empty, non-zero, or HasOffset). Every other field
// keeps p's value; override's other fields are not read.
func (p Params) mergeNonEmpty(override Params) Params {
	out := p
	if override.Q != "" {
		out.Q = override.Q
	}
	if len(override.QueryBy) > 0 {
		out.QueryBy = override.QueryBy
	}
	if override.FilterBy != "" {
		out.FilterBy = override.FilterBy
	}
	if override.SortBy != "" {
		out.SortBy = override.SortBy
	}
	if len(override.FacetBy) > 0 {
		out.FacetBy = override.FacetBy
	}
	if override.PerPage != 0 {
		out.PerPage = override.PerPage
	}
	if override.Page != 0 {
		out.Page = override.Page
	}
	if override.HasOffset {
		out.Offset = override.Offset
		out.HasOffset = true
	}
	return out
}

// MergeEmbedded applies embedded params (higher priority) over explicit
// params, per spec.md §4.2's do_search merge order. Only the fields
// mergeNonEmpty covers are taken from embedded.
func MergeEmbedded(explicit, embedded Params) Params {
	return explicit.mergeNonEmpty(embedded)
}

// ApplyPreset layers preset params (lower priority, non-destructive) under
// params: each of the fields mergeNonEmpty covers that params leaves at its
// zero value is filled from preset. Every other field keeps params' value;
// preset's other fields are not applied.
func ApplyPreset(params, preset Params) Params {
	filled := preset.mergeNonEmpty(params)
	out := params
	out.Q, out.QueryBy, out.FilterBy, out.SortBy = filled.Q, filled.QueryBy, filled.FilterBy, filled.SortBy
	out.FacetBy, out.PerPage, out.Page = filled.FacetBy, filled.PerPage, filled.Page
	out.Offset, out.HasOffset = filled.Offset, filled.HasOffset
	return out
}

// Validate enforces the hard caps spec.md §8 calls out: at most three sort
// clauses (checked by the caller after splitting SortBy), and q is
// mandatory.
func (p Params) Validate() error {
	if p.Q == "" {
		return glinterr.ClientError("q", "parameter 'q' is required")
	}
	return nil
}
