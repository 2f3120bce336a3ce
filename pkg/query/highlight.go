package query

import (
	"strings"
)

// Highlight is one matched field's highlight output, mirroring the nested
// structure of the original field via Field (dotted, matching the
// flattened field name).
type Highlight struct {
	Field         string   `json:"field"`
	MatchedTokens []string `json:"matched_tokens"`
	Snippet       string   `json:"snippet,omitempty"`
	Value         string   `json:"value,omitempty"`
}

// highlightField wraps matched token spans in value with start/endTag. If
// value is shorter than snippetThreshold characters (spec.md's "short
// values are returned wholly highlighted"), the whole value is returned
// highlighted; otherwise a window of affixNumTokens tokens on either side
// of the first/last match is returned as a snippet.
func highlightField(field, value string, matchedTokens map[string]bool, startTag, endTag string, snippetThreshold, affixNumTokens int, fullField bool) *Highlight {
	words := splitWords(value)
	matchedPositions := map[int]bool{}
	var matched []string
	seen := map[string]bool{}
	for i, w := range words {
		norm := normalizeToken(w)
		if matchedTokens[norm] {
			matchedPositions[i] = true
			if !seen[norm] {
				seen[norm] = true
				matched = append(matched, norm)
			}
		}
	}
	if len(matchedPositions) == 0 {
		return nil
	}

	full := len([]rune(value)) < snippetThreshold || fullField
	var rendered string
	if full {
		rendered = renderHighlightRange(words, matchedPositions, 0, len(words)-1, startTag, endTag)
	} else {
		first, last := firstLastMatch(matchedPositions)
		lo := first - affixNumTokens
		if lo < 0 {
			lo = 0
		}
		hi := last + affixNumTokens
		if hi > len(words)-1 {
			hi = len(words) - 1
		}
		rendered = renderHighlightRange(words, matchedPositions, lo, hi, startTag, endTag)
	}

	h := &Highlight{Field: field, MatchedTokens: matched}
	if full {
		h.Value = rendered
	} else {
		h.Snippet = rendered
	}
	return h
}

func renderHighlightRange(words []string, matched map[int]bool, lo, hi int, startTag, endTag string) string {
	var b strings.Builder
	for i := lo; i <= hi; i++ {
		if matched[i] {
			b.WriteString(startTag)
			b.WriteString(words[i])
			b.WriteString(endTag)
		} else {
			b.WriteString(words[i])
		}
		if i < hi {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func firstLastMatch(matched map[int]bool) (first, last int) {
	first, last = -1, -1
	for i := range matched {
		if first == -1 || i < first {
			first = i
		}
		if last == -1 || i > last {
			last = i
		}
	}
	return first, last
}

// splitWords splits on whitespace, keeping punctuation attached so the
// rendered highlight looks like the original text (only the word-matching
// comparison normalizes case/punctuation, not the rendered output).
func splitWords(s string) []string {
	return strings.Fields(s)
}

func normalizeToken(w string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(w) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// flatHighlight is the enable_highlight_v1 backward-compatible shape: one
// flat entry per matched field instead of a nested document tree.
type flatHighlight struct {
	Field   string   `json:"field"`
	Snippet string   `json:"snippet,omitempty"`
	Value   string   `json:"value,omitempty"`
	Matched []string `json:"matched_tokens"`
}

func toFlatHighlight(h *Highlight) flatHighlight {
	return flatHighlight{Field: h.Field, Snippet: h.Snippet, Value: h.Value, Matched: h.MatchedTokens}
}
