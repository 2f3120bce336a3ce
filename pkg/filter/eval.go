package filter

import "github.com/cuemby/glint/pkg/index"

// Evaluator resolves a single leaf predicate against a collection's
// indexes, returning the matching document sequence ids. pkg/collection
// implements this against its own index families so that pkg/filter never
// needs to know about collections, the KV store, or the write pipeline.
//
// MatchReference is handled separately from MatchLeaf because resolving it
// requires looking up another collection and recursively evaluating the
// reference leaf's inner tree against that collection's own Evaluator —
// work only the collection manager can do.
type Evaluator interface {
	MatchLeaf(leaf *Leaf) ([]uint32, error)
	MatchReference(leaf *Leaf) ([]uint32, error)
}

// Eval walks the boolean tree, combining leaf matches with set intersection
// (And) and union (Or).
func Eval(n *Node, ev Evaluator) ([]uint32, error) {
	if n == nil {
		return nil, nil
	}
	switch n.Kind {
	case NodeLeaf:
		if n.Leaf.IsReference {
			return ev.MatchReference(n.Leaf)
		}
		return ev.MatchLeaf(n.Leaf)
	case NodeAnd:
		left, err := Eval(n.Left, ev)
		if err != nil {
			return nil, err
		}
		right, err := Eval(n.Right, ev)
		if err != nil {
			return nil, err
		}
		return index.Intersect(left, right), nil
	case NodeOr:
		left, err := Eval(n.Left, ev)
		if err != nil {
			return nil, err
		}
		right, err := Eval(n.Right, ev)
		if err != nil {
			return nil, err
		}
		return index.Union(left, right), nil
	}
	return nil, nil
}
