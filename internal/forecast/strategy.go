package forecast

import "github.com/sells-group/gridcast/internal/aggregate"

// VersionHeuristicV2 tags the current heuristic algorithm. It is a
// contract with downstream consumers and must change whenever the
// decay, smoothing or boost formulas change.
const VersionHeuristicV2 = "heuristic_v2"

// HorizonResult is the prediction for one (cell, horizon) pair.
type HorizonResult struct {
	Predicted   float64 `json:"predicted"`
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	DemandIndex float64 `json:"demand_index"`
}

// CellForecast carries all horizon results for one cell, plus the
// effective decay rate used. Suppressed marks cells below the
// k-anonymity threshold; callers decide whether to drop or null them.
type CellForecast struct {
	Agg        *aggregate.CellAggregate
	Suppressed bool
	Decay      float64
	Horizons   map[int]HorizonResult
}

// Strategy is the forecast algorithm abstraction. A single heuristic
// implementation exists today; a real time-series model would slot in
// as a new variant without touching callers.
type Strategy interface {
	Version() string
	Run(ra *aggregate.ResolutionAggregate, horizons []int, k int) []CellForecast
}
