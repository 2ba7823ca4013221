// Package aggregate owns the per-resolution cell aggregate snapshot:
// loading it from a source, deriving density tiers, and publishing it
// atomically to readers.
package aggregate

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gridcast/internal/stats"
)

// ErrDataUnavailable reports that no aggregate snapshot is loaded for a
// requested resolution. An empty cell set is NOT this error.
var ErrDataUnavailable = eris.New("aggregate: data unavailable")

// Tier is the coarse density bucket of a cell within its resolution.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// CellAggregate is one hexagonal cell's aggregate for a resolution.
// Instances are immutable once their snapshot is published.
type CellAggregate struct {
	Cell        string  `json:"h3"`
	Res         int     `json:"res"`
	PointCount  int     `json:"point_count"`
	UniqueTrips int     `json:"unique_trips"`
	Lat         float64 `json:"lat_center"`
	Lng         float64 `json:"lng_center"`

	Tier       Tier `json:"tier"`
	IsHub      bool `json:"is_hub"`
	IsCorridor bool `json:"is_corridor"`

	// Demand score and its quantile rank within the resolution,
	// attached by the scoring enricher during load.
	Score         float64 `json:"score"`
	ScoreQuantile float64 `json:"score_quantile"`
}

// TierBreaks holds the point_count percentile breakpoints used for
// density tier assignment. Recomputed per load so tiering stays stable
// under different data volumes.
type TierBreaks struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
}

// ResolutionAggregate is the full immutable cell set for one resolution.
type ResolutionAggregate struct {
	Res         int
	Cells       []CellAggregate
	TotalPoints int64
	TotalTrips  int64
	TierBreaks  TierBreaks

	index map[string]int
}

// Get returns the cell aggregate for an identifier, if present.
func (ra *ResolutionAggregate) Get(cell string) (*CellAggregate, bool) {
	i, ok := ra.index[cell]
	if !ok {
		return nil, false
	}
	return &ra.Cells[i], true
}

// IndexOf returns the position of a cell within Cells, if present.
func (ra *ResolutionAggregate) IndexOf(cell string) (int, bool) {
	i, ok := ra.index[cell]
	return i, ok
}

// Len returns the number of cells in the resolution.
func (ra *ResolutionAggregate) Len() int {
	return len(ra.Cells)
}

// Reindex rebuilds the identifier index after Cells changes. Callers
// constructing an aggregate by hand must invoke it before Get works.
func (ra *ResolutionAggregate) Reindex() {
	ra.index = make(map[string]int, len(ra.Cells))
	for i := range ra.Cells {
		ra.index[ra.Cells[i].Cell] = i
	}
}

// assignTiers derives the density tier of every cell from the
// resolution's point_count distribution: low up to the 50th percentile,
// medium up to the 90th, high above.
func (ra *ResolutionAggregate) assignTiers() {
	if len(ra.Cells) == 0 {
		return
	}
	counts := make([]float64, len(ra.Cells))
	for i := range ra.Cells {
		counts[i] = float64(ra.Cells[i].PointCount)
	}
	qs := stats.Quantiles(counts, 0.50, 0.90)
	ra.TierBreaks = TierBreaks{P50: qs[0], P90: qs[1]}
	for i := range ra.Cells {
		ra.Cells[i].Tier = tierFor(float64(ra.Cells[i].PointCount), ra.TierBreaks)
	}
}

func tierFor(count float64, breaks TierBreaks) Tier {
	switch {
	case count <= breaks.P50:
		return TierLow
	case count <= breaks.P90:
		return TierMedium
	default:
		return TierHigh
	}
}

// Snapshot is one atomically published generation of all resolutions.
type Snapshot struct {
	ID          string
	LoadedAt    time.Time
	Resolutions map[int]*ResolutionAggregate
}
