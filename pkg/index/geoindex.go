package index

import "github.com/cuemby/glint/pkg/geocell"

// geoCellShift is how many low-order bits of each fixed-point coordinate
// are dropped when computing a cell coordinate; at 1e6 scale (degrees *
// 1e6) a 16-bit shift buckets points into cells a few kilometers wide,
// enough to bound a radius scan of up to one cell width to the candidate
// cell and its 8 neighbors before the exact Haversine filter runs; Radius
// scans every cell for a wider radius.
const geoCellShift = 16

// cellKey combines independent lat and lng cell coordinates into one map
// key. geocell.CellPrefix only takes the top bits of the combined 64-bit
// packed value, which at any width under 32 bits falls entirely inside
// the latitude half and ignores longitude; a real 2D grid needs each
// axis quantized separately.
func cellKey(lat, lng float64) uint64 {
	latCell, lngCell := cellCoords(lat, lng)
	return (uint64(uint32(latCell)) << 32) | uint64(uint32(lngCell))
}

func cellCoords(lat, lng float64) (latCell, lngCell int32) {
	packed := geocell.Pack(lat, lng)
	ilat := int32(uint32(packed >> 32))
	ilng := int32(uint32(packed))
	return ilat >> geoCellShift, ilng >> geoCellShift
}

// GeoIndex buckets documents into a 2D grid of cells keyed by their
// quantized lat/lng coordinates, the way original_source's S2-based
// index buckets by cell id — ours uses a fixed-width grid instead of an
// S2 cell hierarchy.
type GeoIndex struct {
	cells  map[uint64]map[uint32]uint64 // cell -> seqID -> packed lat/lng
	points map[uint32]uint64            // seqID -> packed lat/lng, for direct point lookup
}

// NewGeoIndex returns an empty geo index.
func NewGeoIndex() *GeoIndex {
	return &GeoIndex{cells: make(map[uint64]map[uint32]uint64), points: make(map[uint32]uint64)}
}

// Insert adds seqID at (lat, lng).
func (idx *GeoIndex) Insert(seqID uint32, lat, lng float64) {
	cell := cellKey(lat, lng)
	bucket, ok := idx.cells[cell]
	if !ok {
		bucket = make(map[uint32]uint64)
		idx.cells[cell] = bucket
	}
	packed := geocell.Pack(lat, lng)
	bucket[seqID] = packed
	idx.points[seqID] = packed
}

// Delete removes seqID at (lat, lng).
func (idx *GeoIndex) Delete(seqID uint32, lat, lng float64) {
	cell := cellKey(lat, lng)
	if bucket, ok := idx.cells[cell]; ok {
		delete(bucket, seqID)
		if len(bucket) == 0 {
			delete(idx.cells, cell)
		}
	}
	delete(idx.points, seqID)
}

// PointOf returns the stored (lat, lng) for seqID, used by geopoint
// proximity sort clauses.
func (idx *GeoIndex) PointOf(seqID uint32) (lat, lng float64, ok bool) {
	packed, ok := idx.points[seqID]
	if !ok {
		return 0, 0, false
	}
	lat, lng = geocell.Unpack(packed)
	return lat, lng, true
}

// neighborCells returns the cell containing (lat, lng) along with its 8
// surrounding cells in the grid.
func neighborCells(lat, lng float64) []uint64 {
	latCell, lngCell := cellCoords(lat, lng)
	out := make([]uint64, 0, 9)
	for dLat := int32(-1); dLat <= 1; dLat++ {
		for dLng := int32(-1); dLng <= 1; dLng++ {
			nLat := latCell + dLat
			nLng := lngCell + dLng
			out = append(out, (uint64(uint32(nLat))<<32)|uint64(uint32(nLng)))
		}
	}
	return out
}

// Radius returns every seqID within radiusKM of (centerLat, centerLng),
// scanning only the candidate cell and its 8 neighbors when radiusKM fits
// within one cell's width at the center (every cell otherwise), then
// applying the exact Haversine distance as a final filter.
func (idx *GeoIndex) Radius(centerLat, centerLng, radiusKM float64) []uint32 {
	var out []uint32
	seen := make(map[uint32]bool)
	cells := neighborCells(centerLat, centerLng)
	cellDeg := float64(int64(1)<<geoCellShift) / 1e6
	if radiusKM > geocell.HaversineKM(centerLat, centerLng, centerLat+cellDeg, centerLng) ||
		radiusKM > geocell.HaversineKM(centerLat, centerLng, centerLat, centerLng+cellDeg) {
		cells = cells[:0]
		for cell := range idx.cells {
			cells = append(cells, cell)
		}
	}
	for _, cell := range cells {
		bucket, ok := idx.cells[cell]
		if !ok {
			continue
		}
		for seqID, packed := range bucket {
			if seen[seqID] {
				continue
			}
			lat, lng := geocell.Unpack(packed)
			if geocell.HaversineKM(centerLat, centerLng, lat, lng) <= radiusKM {
				seen[seqID] = true
				out = append(out, seqID)
			}
		}
	}
	return out
}

// Polygon returns every seqID whose point falls inside the given
// polygon. Polygon containment can't be bounded to a handful of grid
// cells the way a radius query can, so this scans every indexed point.
func (idx *GeoIndex) Polygon(vertices []geocell.Point) []uint32 {
	var out []uint32
	for _, bucket := range idx.cells {
		for seqID, packed := range bucket {
			lat, lng := geocell.Unpack(packed)
			if geocell.PointInPolygon(geocell.Point{Lat: lat, Lng: lng}, vertices) {
				out = append(out, seqID)
			}
		}
	}
	return out
}
