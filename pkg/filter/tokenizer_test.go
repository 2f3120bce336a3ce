package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeSplitsOnBooleanOperators(t *testing.T) {
	toks, err := tokenize("price:>10 && in_stock:true")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	require.Equal(t, tokLeaf, toks[0].kind)
	require.Equal(t, "price:>10", toks[0].text)
	require.Equal(t, tokAnd, toks[1].kind)
	require.Equal(t, tokLeaf, toks[2].kind)
}

func TestTokenizeKeepsGeopointParensInsideLeaf(t *testing.T) {
	toks, err := tokenize("location:(48.85, 2.29, 5 km)")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Equal(t, "location:(48.85, 2.29, 5 km)", toks[0].text)
}

func TestTokenizeRecognizesStructuralGrouping(t *testing.T) {
	toks, err := tokenize("(price:>10 || price:<5) && in_stock:true")
	require.NoError(t, err)
	require.Equal(t, tokLParen, toks[0].kind)
	require.Equal(t, tokLeaf, toks[1].kind)
	require.Equal(t, tokOr, toks[2].kind)
	require.Equal(t, tokLeaf, toks[3].kind)
	require.Equal(t, tokRParen, toks[4].kind)
	require.Equal(t, tokAnd, toks[5].kind)
	require.Equal(t, tokLeaf, toks[6].kind)
}

func TestTokenizeKeepsReferenceParensInsideLeaf(t *testing.T) {
	toks, err := tokenize("$authors(name:Doyle)")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Equal(t, "$authors(name:Doyle)", toks[0].text)
}

func TestTokenizeUnbalancedParensErrors(t *testing.T) {
	_, err := tokenize("(price:>10 && in_stock:true")
	require.Error(t, err)
}

func TestTokenizeBacktickPreservesSpecialChars(t *testing.T) {
	toks, err := tokenize("title:=`Bed && Breakfast`")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Equal(t, "title:=`Bed && Breakfast`", toks[0].text)
}

func TestTokenizeEnforcesTokenCap(t *testing.T) {
	expr := ""
	for i := 0; i < maxTokens+1; i++ {
		if i > 0 {
			expr += " && "
		}
		expr += "a:1"
	}
	_, err := tokenize(expr)
	require.Error(t, err)
}

func TestToPostfixHandlesGrouping(t *testing.T) {
	toks, err := tokenize("(a:1 || b:2) && c:3")
	require.NoError(t, err)
	postfix, err := toPostfix(toks)
	require.NoError(t, err)

	// a b || c && in RPN
	require.Equal(t, tokLeaf, postfix[0].kind)
	require.Equal(t, tokLeaf, postfix[1].kind)
	require.Equal(t, tokOr, postfix[2].kind)
	require.Equal(t, tokLeaf, postfix[3].kind)
	require.Equal(t, tokAnd, postfix[4].kind)
}
