// Package scoring computes the static demand score and its quantile
// rank for every cell of a resolution. Scores blend density with trip
// uniqueness so a cell visited by many distinct trips outranks one
// dominated by a single looping vehicle.
package scoring

import (
	"sort"

	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/stats"
)

const (
	densityWeight    = 0.6
	uniquenessWeight = 0.4
)

// Score computes a single cell's demand score given the resolution's
// maximum point count. Zero-count cells score 0, not NaN.
func Score(pointCount, uniqueTrips int, maxPoints float64) float64 {
	if pointCount == 0 {
		return 0
	}
	var normalized float64
	if maxPoints > 0 {
		normalized = float64(pointCount) / maxPoints
	}
	uniqueness := float64(uniqueTrips) / float64(pointCount)
	return densityWeight*normalized + uniquenessWeight*uniqueness
}

// Enrich attaches Score and ScoreQuantile to every cell of a
// resolution aggregate. Ties share the same quantile rank, computed as
// the fraction of the population with score less than or equal.
// Shaped as an aggregate.Enricher so the store runs it during load.
func Enrich(ra *aggregate.ResolutionAggregate) error {
	if ra.Len() == 0 {
		return nil
	}
	var maxPoints float64
	for i := range ra.Cells {
		if pc := float64(ra.Cells[i].PointCount); pc > maxPoints {
			maxPoints = pc
		}
	}

	scores := make([]float64, ra.Len())
	for i := range ra.Cells {
		c := &ra.Cells[i]
		c.Score = Score(c.PointCount, c.UniqueTrips, maxPoints)
		scores[i] = c.Score
	}
	for i := range ra.Cells {
		ra.Cells[i].ScoreQuantile = stats.RankFraction(scores, ra.Cells[i].Score)
	}
	return nil
}

// Quantiles returns the q50/q80/q95 breakpoints of the resolution's
// score distribution, for meta views.
func Quantiles(ra *aggregate.ResolutionAggregate) (q50, q80, q95 float64) {
	if ra.Len() == 0 {
		return 0, 0, 0
	}
	scores := make([]float64, ra.Len())
	for i := range ra.Cells {
		scores[i] = ra.Cells[i].Score
	}
	qs := stats.Quantiles(scores, 0.50, 0.80, 0.95)
	return qs[0], qs[1], qs[2]
}

// Top returns up to limit cells ordered by score descending, ties
// broken by point count then identifier for a stable ordering.
func Top(ra *aggregate.ResolutionAggregate, limit int) []*aggregate.CellAggregate {
	cells := make([]*aggregate.CellAggregate, ra.Len())
	for i := range ra.Cells {
		cells[i] = &ra.Cells[i]
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Score != cells[j].Score {
			return cells[i].Score > cells[j].Score
		}
		if cells[i].PointCount != cells[j].PointCount {
			return cells[i].PointCount > cells[j].PointCount
		}
		return cells[i].Cell < cells[j].Cell
	})
	if limit > 0 && limit < len(cells) {
		cells = cells[:limit]
	}
	return cells
}
