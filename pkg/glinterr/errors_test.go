package glinterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	require.Equal(t, 400, StatusCode(ClientError("q", "bad query")))
	require.Equal(t, 404, StatusCode(NotFound("collection", "not found")))
	require.Equal(t, 409, StatusCode(Conflict("id", "already exists")))
	require.Equal(t, 422, StatusCode(Unprocessable("skipped")))
	require.Equal(t, 503, StatusCode(Unavailable("no leader")))
	require.Equal(t, 408, StatusCode(Timeout("cutoff exceeded")))
	require.Equal(t, 500, StatusCode(Fatal(errors.New("disk full"), "store write failed")))
	require.Equal(t, 200, StatusCode(nil))
	require.Equal(t, 500, StatusCode(errors.New("unrelated")))
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindNotFound, KindOf(NotFound("id", "missing")))
	require.Equal(t, Kind(""), KindOf(errors.New("unrelated")))
}

func TestErrorIsByKind(t *testing.T) {
	a := NotFound("collection", "products missing")
	b := NotFound("collection", "reviews missing")
	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, ClientError("x", "bad")))
}

func TestFatalUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Fatal(cause, "store write failed")
	require.ErrorIs(t, err, cause)
}

func TestErrorMessageIncludesField(t *testing.T) {
	err := ClientError("sort_by", "unknown field %q", "bogus")
	require.Contains(t, err.Error(), "sort_by")
	require.Contains(t, err.Error(), "bogus")
}
