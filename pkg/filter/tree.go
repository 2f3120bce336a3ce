package filter

import "github.com/cuemby/glint/pkg/glinterr"

// NodeKind discriminates a boolean tree node.
type NodeKind int

const (
	NodeLeaf NodeKind = iota
	NodeAnd
	NodeOr
)

// Node is one node of the compiled filter_by boolean tree: either a leaf
// predicate or an And/Or combination of two children.
type Node struct {
	Kind  NodeKind
	Leaf  *Leaf
	Left  *Node
	Right *Node
}

// Parse compiles a filter_by expression into a boolean tree, enforcing
// tokenCap on the leaf/operator token count.
func Parse(expr string, tokenCap int) (*Node, error) {
	if tokenCap <= 0 {
		tokenCap = maxTokens
	}
	toks, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	if len(toks) > tokenCap {
		return nil, glinterr.ClientError("filter_by", "filter expression exceeds %d tokens", tokenCap)
	}
	if len(toks) == 0 {
		return nil, glinterr.ClientError("filter_by", "empty filter expression")
	}

	postfix, err := toPostfix(toks)
	if err != nil {
		return nil, err
	}
	return fromPostfix(postfix, tokenCap)
}

// fromPostfix evaluates a postfix token stream into a boolean tree using a
// node stack.
func fromPostfix(postfix []token, tokenCap int) (*Node, error) {
	var stack []*Node
	for _, t := range postfix {
		switch t.kind {
		case tokLeaf:
			leaf, err := parseLeaf(t.text, tokenCap)
			if err != nil {
				return nil, err
			}
			stack = append(stack, &Node{Kind: NodeLeaf, Leaf: leaf})
		case tokAnd, tokOr:
			if len(stack) < 2 {
				return nil, glinterr.ClientError("filter_by", "malformed filter expression")
			}
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			kind := NodeAnd
			if t.kind == tokOr {
				kind = NodeOr
			}
			stack = append(stack, &Node{Kind: kind, Left: left, Right: right})
		default:
			return nil, glinterr.ClientError("filter_by", "malformed filter expression")
		}
	}
	if len(stack) != 1 {
		return nil, glinterr.ClientError("filter_by", "malformed filter expression")
	}
	return stack[0], nil
}
