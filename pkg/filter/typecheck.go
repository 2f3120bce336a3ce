package filter

import (
	"github.com/cuemby/glint/pkg/glinterr"
	"github.com/cuemby/glint/pkg/schema"
)

// Resolver looks up a field's effective schema definition, the same way
// schema.Schema.Resolve does. It is a narrow interface so this package
// never needs to import pkg/collection.
type Resolver interface {
	Resolve(field string) (schema.Field, bool)
}

// TypeCheck walks the tree validating that every non-reference leaf names
// an indexed field and that its operator is compatible with the field's
// type. Reference leaves are left to the caller to check against the
// referenced collection's own schema.
func TypeCheck(n *Node, r Resolver) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case NodeAnd, NodeOr:
		if err := TypeCheck(n.Left, r); err != nil {
			return err
		}
		return TypeCheck(n.Right, r)
	case NodeLeaf:
		return typeCheckLeaf(n.Leaf, r)
	}
	return nil
}

func typeCheckLeaf(l *Leaf, r Resolver) error {
	if l.IsReference {
		return nil
	}
	if l.Field == IDField {
		if l.Op == OpNeq || l.Op == OpNotIn {
			return glinterr.ClientError(l.Field, "id field does not support != ")
		}
		return nil
	}
	f, ok := r.Resolve(l.Field)
	if !ok {
		return glinterr.ClientError(l.Field, "field %q not found in schema", l.Field)
	}
	if !f.Index {
		return glinterr.ClientError(l.Field, "field %q is not indexed and cannot be filtered on", l.Field)
	}

	switch l.Op {
	case OpGeoRadius, OpGeoPolygon:
		if f.Type != schema.TypeGeopoint {
			return glinterr.ClientError(l.Field, "field %q is not a geopoint field", l.Field)
		}
	case OpGt, OpGte, OpLt, OpLte, OpRange:
		if !f.HasNumericalIndex() {
			return glinterr.ClientError(l.Field, "field %q does not support range comparisons", l.Field)
		}
	case OpIn, OpNotIn:
		// Both numeric and string fields support set membership.
	case OpEq, OpExact, OpNeq, OpContains:
		// Every indexed field type supports equality/containment checks.
	}
	return nil
}
