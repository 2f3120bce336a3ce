package filter

import (
	"strings"

	"github.com/cuemby/glint/pkg/glinterr"
)

// maxTokens bounds worst-case filter complexity per spec §4.4.
const maxTokens = 100

type tokenKind int

const (
	tokLeaf tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a filter_by expression into leaf/grouping tokens. A "("
// only opens a boolean group when it appears at the start of a conjunct
// (nothing buffered yet); otherwise it's consumed as part of the current
// leaf's text, which is how geopoint value parens and reference-filter
// `$other(...)` parens survive intact inside a single leaf token.
func tokenize(expr string) ([]token, error) {
	var toks []token
	var buf strings.Builder
	leafParenDepth := 0

	flush := func() {
		if buf.Len() > 0 {
			toks = append(toks, token{kind: tokLeaf, text: strings.TrimSpace(buf.String())})
			buf.Reset()
		}
	}

	i := 0
	n := len(expr)
	for i < n {
		c := expr[i]
		switch {
		case c == '`':
			buf.WriteByte(c)
			i++
			for i < n && expr[i] != '`' {
				buf.WriteByte(expr[i])
				i++
			}
			if i < n {
				buf.WriteByte(expr[i])
				i++
			}
		case leafParenDepth == 0 && c == '(' && buf.Len() == 0:
			flush()
			toks = append(toks, token{kind: tokLParen})
			i++
		case leafParenDepth == 0 && c == ')':
			flush()
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == '(':
			leafParenDepth++
			buf.WriteByte(c)
			i++
		case c == ')':
			leafParenDepth--
			buf.WriteByte(c)
			i++
		case leafParenDepth == 0 && c == '&' && i+1 < n && expr[i+1] == '&':
			flush()
			toks = append(toks, token{kind: tokAnd})
			i += 2
		case leafParenDepth == 0 && c == '|' && i+1 < n && expr[i+1] == '|':
			flush()
			toks = append(toks, token{kind: tokOr})
			i += 2
		case c == ' ' && buf.Len() == 0:
			i++
		default:
			buf.WriteByte(c)
			i++
		}
	}
	flush()

	if leafParenDepth != 0 {
		return nil, glinterr.ClientError("filter_by", "unbalanced parentheses")
	}
	if len(toks) > maxTokens {
		return nil, glinterr.ClientError("filter_by", "filter expression exceeds %d tokens", maxTokens)
	}
	return toks, nil
}

// toPostfix runs the shunting-yard algorithm over toks. && and || share
// precedence and are left-associative.
func toPostfix(toks []token) ([]token, error) {
	var output []token
	var ops []token

	isBoolOp := func(t token) bool { return t.kind == tokAnd || t.kind == tokOr }

	for _, t := range toks {
		switch t.kind {
		case tokLeaf:
			output = append(output, t)
		case tokAnd, tokOr:
			for len(ops) > 0 && isBoolOp(ops[len(ops)-1]) {
				output = append(output, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			ops = append(ops, t)
		case tokLParen:
			ops = append(ops, t)
		case tokRParen:
			for len(ops) > 0 && ops[len(ops)-1].kind != tokLParen {
				output = append(output, ops[len(ops)-1])
				ops = ops[:len(ops)-1]
			}
			if len(ops) == 0 {
				return nil, glinterr.ClientError("filter_by", "unbalanced parentheses")
			}
			ops = ops[:len(ops)-1]
		}
	}
	for len(ops) > 0 {
		if ops[len(ops)-1].kind == tokLParen {
			return nil, glinterr.ClientError("filter_by", "unbalanced parentheses")
		}
		output = append(output, ops[len(ops)-1])
		ops = ops[:len(ops)-1]
	}
	return output, nil
}
