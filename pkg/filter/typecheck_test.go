package filter

import (
	"testing"

	"github.com/cuemby/glint/pkg/schema"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]schema.Field

func (r fakeResolver) Resolve(name string) (schema.Field, bool) {
	f, ok := r[name]
	return f, ok
}

func TestTypeCheckRejectsUnknownField(t *testing.T) {
	n, err := Parse("ghost:1", 0)
	require.NoError(t, err)

	err = TypeCheck(n, fakeResolver{})
	require.Error(t, err)
}

func TestTypeCheckRejectsUnindexedField(t *testing.T) {
	n, err := Parse("title:harry", 0)
	require.NoError(t, err)

	r := fakeResolver{"title": schema.Field{Name: "title", Type: schema.TypeString, Index: false}}
	err = TypeCheck(n, r)
	require.Error(t, err)
}

func TestTypeCheckRejectsRangeOnNonNumeric(t *testing.T) {
	n, err := Parse("title:>5", 0)
	require.NoError(t, err)

	r := fakeResolver{"title": schema.Field{Name: "title", Type: schema.TypeString, Index: true}}
	err = TypeCheck(n, r)
	require.Error(t, err)
}

func TestTypeCheckAcceptsRangeOnNumeric(t *testing.T) {
	n, err := Parse("price:>5", 0)
	require.NoError(t, err)

	r := fakeResolver{"price": schema.Field{Name: "price", Type: schema.TypeFloat, Index: true}}
	err = TypeCheck(n, r)
	require.NoError(t, err)
}

func TestTypeCheckAcceptsIDField(t *testing.T) {
	n, err := Parse("id:b1", 0)
	require.NoError(t, err)

	err = TypeCheck(n, fakeResolver{})
	require.NoError(t, err)
}

func TestTypeCheckAcceptsIDFieldSet(t *testing.T) {
	n, err := Parse("id:[b1,b2]", 0)
	require.NoError(t, err)

	err = TypeCheck(n, fakeResolver{})
	require.NoError(t, err)
}

func TestTypeCheckRejectsIDNotEquals(t *testing.T) {
	n, err := Parse("id:!=b1", 0)
	require.NoError(t, err)

	err = TypeCheck(n, fakeResolver{})
	require.Error(t, err)
}

func TestTypeCheckSkipsReferenceLeaves(t *testing.T) {
	n, err := Parse("$authors(name:Doyle)", 0)
	require.NoError(t, err)

	err = TypeCheck(n, fakeResolver{})
	require.NoError(t, err)
}
