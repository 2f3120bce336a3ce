package geocell

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	lat, lng := 37.774929, -122.419416
	packed := Pack(lat, lng)
	gotLat, gotLng := Unpack(packed)

	require.InDelta(t, lat, gotLat, 1e-6)
	require.InDelta(t, lng, gotLng, 1e-6)
}

func TestPackNegativeCoordinates(t *testing.T) {
	packed := Pack(-33.8688, 151.2093)
	lat, lng := Unpack(packed)
	require.InDelta(t, -33.8688, lat, 1e-6)
	require.InDelta(t, 151.2093, lng, 1e-6)
}

func TestHaversineKMKnownDistance(t *testing.T) {
	// San Francisco to Los Angeles, roughly 559 km.
	dist := HaversineKM(37.774929, -122.419416, 34.052235, -118.243683)
	require.InDelta(t, 559, dist, 10)
}

func TestHaversineKMZeroDistance(t *testing.T) {
	dist := HaversineKM(10, 20, 10, 20)
	require.True(t, math.Abs(dist) < 1e-9)
}

func TestPointInPolygonSquare(t *testing.T) {
	square := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
		{Lat: 10, Lng: 10},
		{Lat: 10, Lng: 0},
	}

	require.True(t, PointInPolygon(Point{Lat: 5, Lng: 5}, square))
	require.False(t, PointInPolygon(Point{Lat: 15, Lng: 15}, square))
}

func TestCellPrefixNearbyPointsShareAPrefix(t *testing.T) {
	a := Pack(37.774929, -122.419416)
	b := Pack(37.774930, -122.419417)

	require.Equal(t, CellPrefix(a, 16), CellPrefix(b, 16))
}

func TestCellPrefixFullWidth(t *testing.T) {
	packed := Pack(1.5, 2.5)
	require.Equal(t, packed, CellPrefix(packed, 64))
}
