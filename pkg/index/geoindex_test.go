package index

import (
	"testing"

	"github.com/cuemby/glint/pkg/geocell"
	"github.com/stretchr/testify/require"
)

func TestGeoIndexRadiusFindsNearbyPoints(t *testing.T) {
	idx := NewGeoIndex()
	idx.Insert(1, 37.7749, -122.4194) // San Francisco
	idx.Insert(2, 37.7750, -122.4195) // a few meters away
	idx.Insert(3, 34.0522, -118.2437) // Los Angeles, far away

	got := idx.Radius(37.7749, -122.4194, 1)
	require.ElementsMatch(t, []uint32{1, 2}, got)
}

func TestGeoIndexRadiusRespectsLongitude(t *testing.T) {
	idx := NewGeoIndex()
	// Same latitude band, far apart in longitude: must not collide into
	// one cell bucket.
	idx.Insert(1, 0, 0)
	idx.Insert(2, 0, 90)

	got := idx.Radius(0, 0, 100)
	require.Equal(t, []uint32{1}, got)
}

func TestGeoIndexDelete(t *testing.T) {
	idx := NewGeoIndex()
	idx.Insert(1, 10, 10)
	idx.Delete(1, 10, 10)

	require.Empty(t, idx.Radius(10, 10, 50))
}

func TestGeoIndexPolygon(t *testing.T) {
	idx := NewGeoIndex()
	idx.Insert(1, 5, 5)   // inside
	idx.Insert(2, 50, 50) // outside

	square := []geocell.Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
		{Lat: 10, Lng: 10},
		{Lat: 10, Lng: 0},
	}
	got := idx.Polygon(square)
	require.Equal(t, []uint32{1}, got)
}
