package aggregate

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// PolygonBoundary is a BoundaryFilter backed by a polygon ring in
// (lng, lat) coordinate order.
type PolygonBoundary struct {
	ring []float64
}

// NewPolygonBoundary builds a filter from an explicit ring of
// (lng, lat) coordinate pairs.
func NewPolygonBoundary(coords [][2]float64) *PolygonBoundary {
	ring := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		ring = append(ring, c[0], c[1])
	}
	return &PolygonBoundary{ring: ring}
}

// LoadBoundaryShapefile reads the service-area polygon from the first
// polygon record of a shapefile. Only the outer ring is used; holes in
// the service area are not a thing we model.
func LoadBoundaryShapefile(path string) (*PolygonBoundary, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "aggregate: open boundary shapefile %s", path)
	}
	defer r.Close()

	for r.Next() {
		_, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		end := len(poly.Points)
		if len(poly.Parts) > 1 {
			end = int(poly.Parts[1])
		}
		ring := make([]float64, 0, end*2)
		for _, p := range poly.Points[:end] {
			ring = append(ring, p.X, p.Y)
		}
		if len(ring) < 6 {
			return nil, eris.Errorf("aggregate: degenerate boundary polygon in %s", path)
		}
		return &PolygonBoundary{ring: ring}, nil
	}
	return nil, eris.Errorf("aggregate: no polygon record in %s", path)
}

// Contains implements BoundaryFilter.
func (b *PolygonBoundary) Contains(lat, lng float64) bool {
	return xy.IsPointInRing(geom.XY, geom.Coord{lng, lat}, b.ring)
}
