package hexgrid

import "github.com/rotisserie/eris"

// StaticIndexer is a deterministic in-memory Indexer built from an
// explicit adjacency map. It backs tests and offline fixtures where
// real hexagon topology is irrelevant.
type StaticIndexer struct {
	Neighbors  map[string][]string
	Centers    map[string]Vertex
	Boundaries map[string][]Vertex
}

// NewStatic returns a StaticIndexer with the given adjacency.
func NewStatic(neighbors map[string][]string) *StaticIndexer {
	return &StaticIndexer{
		Neighbors:  neighbors,
		Centers:    map[string]Vertex{},
		Boundaries: map[string][]Vertex{},
	}
}

func (s *StaticIndexer) CellOf(lat, lng float64, res int) (string, error) {
	return "", eris.New("hexgrid: static indexer cannot index points")
}

func (s *StaticIndexer) Ring(cell string) ([]string, error) {
	return s.Neighbors[cell], nil
}

func (s *StaticIndexer) Center(cell string) (Vertex, error) {
	if v, ok := s.Centers[cell]; ok {
		return v, nil
	}
	return Vertex{}, nil
}

func (s *StaticIndexer) Boundary(cell string) ([]Vertex, error) {
	if b, ok := s.Boundaries[cell]; ok {
		return b, nil
	}
	return nil, eris.Errorf("hexgrid: no boundary for %s", cell)
}

func (s *StaticIndexer) Valid(cell string) bool {
	_, ok := s.Neighbors[cell]
	return ok
}
