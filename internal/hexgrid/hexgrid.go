// Package hexgrid wraps hexagonal grid indexing behind a narrow
// interface so the aggregate and forecast layers never depend on a
// concrete indexing library.
package hexgrid

import (
	"github.com/rotisserie/eris"
	h3 "github.com/uber/h3-go/v4"
)

// Vertex is a single boundary vertex in (lat, lng) order.
type Vertex struct {
	Lat float64
	Lng float64
}

// Indexer maps raw coordinates to discrete hexagonal cell identifiers
// and answers local topology queries about them.
type Indexer interface {
	// CellOf returns the cell identifier containing (lat, lng) at the
	// given resolution.
	CellOf(lat, lng float64, res int) (string, error)

	// Ring returns the identifiers of the immediate (1-ring) neighbors
	// of a cell, excluding the cell itself.
	Ring(cell string) ([]string, error)

	// Center returns the center coordinates of a cell.
	Center(cell string) (Vertex, error)

	// Boundary returns the ordered hexagon boundary vertices of a cell.
	Boundary(cell string) ([]Vertex, error)

	// Valid reports whether the identifier addresses a real cell.
	Valid(cell string) bool
}

// H3Indexer implements Indexer on Uber's H3 library.
type H3Indexer struct{}

// NewH3 returns the production H3-backed indexer.
func NewH3() *H3Indexer {
	return &H3Indexer{}
}

func (H3Indexer) CellOf(lat, lng float64, res int) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), res)
	if err != nil {
		return "", eris.Wrap(err, "hexgrid: index point")
	}
	return cell.String(), nil
}

func (H3Indexer) Ring(cell string) ([]string, error) {
	c, err := parseCell(cell)
	if err != nil {
		return nil, err
	}
	disk, err := c.GridDisk(1)
	if err != nil {
		return nil, eris.Wrapf(err, "hexgrid: ring of %s", cell)
	}
	neighbors := make([]string, 0, len(disk))
	for _, n := range disk {
		if n == c {
			continue
		}
		neighbors = append(neighbors, n.String())
	}
	return neighbors, nil
}

func (H3Indexer) Center(cell string) (Vertex, error) {
	c, err := parseCell(cell)
	if err != nil {
		return Vertex{}, err
	}
	ll, err := h3.CellToLatLng(c)
	if err != nil {
		return Vertex{}, eris.Wrapf(err, "hexgrid: center of %s", cell)
	}
	return Vertex{Lat: ll.Lat, Lng: ll.Lng}, nil
}

func (H3Indexer) Boundary(cell string) ([]Vertex, error) {
	c, err := parseCell(cell)
	if err != nil {
		return nil, err
	}
	boundary, err := c.Boundary()
	if err != nil {
		return nil, eris.Wrapf(err, "hexgrid: boundary of %s", cell)
	}
	vertices := make([]Vertex, len(boundary))
	for i, ll := range boundary {
		vertices[i] = Vertex{Lat: ll.Lat, Lng: ll.Lng}
	}
	return vertices, nil
}

func (H3Indexer) Valid(cell string) bool {
	return h3.Cell(h3.IndexFromString(cell)).IsValid()
}

func parseCell(cell string) (h3.Cell, error) {
	c := h3.Cell(h3.IndexFromString(cell))
	if !c.IsValid() {
		return 0, eris.Errorf("hexgrid: invalid cell identifier %q", cell)
	}
	return c, nil
}
