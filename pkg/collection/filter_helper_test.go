package collection

import (
	"testing"

	"github.com/cuemby/glint/pkg/filter"
	"github.com/stretchr/testify/require"
)

// parseTestFilter compiles a single-leaf filter_by expression for tests
// that want to exercise Collection.MatchLeaf/MatchReference directly.
func parseTestFilter(t *testing.T, expr string) (*filter.Node, error) {
	t.Helper()
	n, err := filter.Parse(expr, 0)
	require.NoError(t, err)
	return n, nil
}
