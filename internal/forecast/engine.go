package forecast

import (
	"math"

	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/hexgrid"
	"github.com/sells-group/gridcast/internal/privacy"
	"github.com/sells-group/gridcast/internal/stats"
)

// Engine is the heuristic_v2 forecast implementation: tier-adjusted
// exponential decay, hub clamp, 1-ring neighbor smoothing, fading
// corridor boost, tier-scaled confidence bands and a blended demand
// index. All computation is pure over an immutable snapshot.
type Engine struct {
	indexer hexgrid.Indexer
	params  Params
}

// NewEngine builds the heuristic engine.
func NewEngine(indexer hexgrid.Indexer, params Params) *Engine {
	return &Engine{indexer: indexer, params: params}
}

// Version implements Strategy.
func (e *Engine) Version() string { return VersionHeuristicV2 }

// Params returns the active tuning values.
func (e *Engine) Params() Params { return e.params }

// Run computes forecasts for every cell of the resolution at the given
// horizons. Results are positionally aligned with ra.Cells. The demand
// index is normalized per horizon over the non-suppressed population
// only, so suppressed cells never leak into the denominator.
func (e *Engine) Run(ra *aggregate.ResolutionAggregate, horizons []int, k int) []CellForecast {
	n := ra.Len()
	results := make([]CellForecast, n)
	decays := make([]float64, n)
	// raw[i][j] is cell i's pre-smoothing prediction at horizon j.
	raw := make([][]float64, n)

	for i := range ra.Cells {
		c := &ra.Cells[i]
		decays[i] = e.effectiveDecay(c)
		raw[i] = make([]float64, len(horizons))
		for j, h := range horizons {
			t := float64(h) / 60.0
			raw[i][j] = float64(c.PointCount) * math.Exp(-decays[i]*t)
		}
	}

	for i := range ra.Cells {
		c := &ra.Cells[i]
		results[i] = CellForecast{
			Agg:        c,
			Suppressed: privacy.Suppressed(c, k),
			Decay:      decays[i],
			Horizons:   make(map[int]HorizonResult, len(horizons)),
		}
		if c.PointCount == 0 {
			// No signal: every horizon collapses to zero and the
			// confidence interval to [0,0].
			for _, h := range horizons {
				results[i].Horizons[h] = HorizonResult{}
			}
			continue
		}

		neighborIdx := e.loadedNeighbors(ra, c.Cell)
		for j, h := range horizons {
			t := float64(h) / 60.0
			predicted := e.smooth(raw, i, j, neighborIdx)
			if c.IsCorridor {
				predicted *= 1 + e.params.CorridorBoost*e.boostDecay(t)
			}
			if predicted < 0 {
				predicted = 0
			}
			width := e.params.IntervalWidths.forTier(c.Tier) * predicted
			results[i].Horizons[h] = HorizonResult{
				Predicted: predicted,
				Lower:     math.Max(0, predicted-width),
				Upper:     predicted + width,
			}
		}
	}

	e.attachDemandIndex(results, horizons)
	return results
}

// effectiveDecay applies the tier multiplier and, for hubs, caps the
// rate at the floor fraction of lambda_0 so hubs keep a minimum
// persistence over short horizons.
func (e *Engine) effectiveDecay(c *aggregate.CellAggregate) float64 {
	lambda := e.params.DecayBase * e.params.TierMultipliers.forTier(c.Tier)
	if c.IsHub {
		if limit := e.params.DecayBase * e.params.HubFloorFraction; lambda > limit {
			lambda = limit
		}
	}
	return lambda
}

// loadedNeighbors resolves the 1-ring of a cell to indexes into
// ra.Cells, skipping neighbors with no loaded data.
func (e *Engine) loadedNeighbors(ra *aggregate.ResolutionAggregate, cell string) []int {
	ring, err := e.indexer.Ring(cell)
	if err != nil {
		return nil
	}
	idx := make([]int, 0, len(ring))
	for _, id := range ring {
		if i, ok := ra.IndexOf(id); ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// smooth blends a cell's raw prediction with its neighbor mean. An
// empty ring skips smoothing entirely.
func (e *Engine) smooth(raw [][]float64, i, j int, neighbors []int) float64 {
	if len(neighbors) == 0 {
		return raw[i][j]
	}
	var sum float64
	for _, ni := range neighbors {
		sum += raw[ni][j]
	}
	mean := sum / float64(len(neighbors))
	a := e.params.AlphaSmoothing
	return a*raw[i][j] + (1-a)*mean
}

// boostDecay shrinks the corridor boost toward zero as the horizon
// grows; full at t=0, negligible past a few tau.
func (e *Engine) boostDecay(t float64) float64 {
	if e.params.CorridorTauHours <= 0 {
		return 0
	}
	return math.Exp(-t / e.params.CorridorTauHours)
}

// attachDemandIndex runs the second normalization pass: per horizon,
// the denominator blends the max and p95 predicted values over the
// non-suppressed population. A population with no usable denominator
// yields index 0 everywhere.
func (e *Engine) attachDemandIndex(results []CellForecast, horizons []int) {
	for _, h := range horizons {
		var population []float64
		for i := range results {
			if results[i].Suppressed {
				continue
			}
			population = append(population, results[i].Horizons[h].Predicted)
		}

		var denom float64
		if len(population) > 0 {
			denom = 0.5*stats.Max(population) + 0.5*stats.Quantile(population, 0.95)
		}

		for i := range results {
			hr := results[i].Horizons[h]
			if denom > 0 {
				hr.DemandIndex = hr.Predicted / denom
			}
			results[i].Horizons[h] = hr
		}
	}
}
