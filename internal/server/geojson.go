package server

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/gridcast/internal/hexgrid"
)

// cellFeature builds one GeoJSON feature for a cell. With polygon set
// the geometry is the full hexagon boundary derived from the
// identifier; otherwise a single center point.
func (s *Server) cellFeature(cell string, polygon bool, properties map[string]any) (*geojson.Feature, error) {
	var g geom.T
	if polygon {
		boundary, err := s.indexer.Boundary(cell)
		if err != nil {
			return nil, eris.Wrapf(err, "server: boundary of %s", cell)
		}
		g = hexagonPolygon(boundary)
	} else {
		center, err := s.indexer.Center(cell)
		if err != nil {
			return nil, eris.Wrapf(err, "server: center of %s", cell)
		}
		g = geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{center.Lng, center.Lat})
	}
	return &geojson.Feature{
		ID:         cell,
		Geometry:   g,
		Properties: properties,
	}, nil
}

// hexagonPolygon converts an ordered vertex boundary into a closed
// GeoJSON polygon ring in (lng, lat) order.
func hexagonPolygon(boundary []hexgrid.Vertex) *geom.Polygon {
	ring := make([]geom.Coord, 0, len(boundary)+1)
	for _, v := range boundary {
		ring = append(ring, geom.Coord{v.Lng, v.Lat})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})
}
