package forecast

import (
	"time"

	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/privacy"
	"github.com/sells-group/gridcast/internal/scoring"
)

// Quantiles are the standard score breakpoints exposed by meta views.
type Quantiles struct {
	Q50 float64 `json:"q50"`
	Q80 float64 `json:"q80"`
	Q95 float64 `json:"q95"`
}

// Meta is the resolution-scoped forecast metadata view. CellsCount is
// the population after suppression, matching what the cells endpoint
// actually serves at the default threshold.
type Meta struct {
	GeneratedAt     time.Time `json:"generated_at"`
	Resolution      int       `json:"resolution"`
	HorizonsMinutes []int     `json:"horizons_minutes"`
	ForecastVersion string    `json:"forecast_version"`
	CellsCount      int       `json:"cells_count"`
	KAnonDefault    int       `json:"k_anon_default"`
	DecayBase       float64   `json:"decay_base"`
	AlphaSmoothing  float64   `json:"alpha_smoothing"`
	CorridorBoost   float64   `json:"corridor_boost"`
	Quantiles       Quantiles `json:"quantiles"`
	Explanation     []string  `json:"explanation"`
}

// BuildMeta assembles forecast metadata from the current snapshot. It
// is a pure read over one aggregate generation, never mixing state
// across a reload boundary.
func BuildMeta(ra *aggregate.ResolutionAggregate, horizons []int, k int, strategy Strategy, params Params) Meta {
	q50, q80, q95 := scoring.Quantiles(ra)
	return Meta{
		GeneratedAt:     time.Now().UTC(),
		Resolution:      ra.Res,
		HorizonsMinutes: horizons,
		ForecastVersion: strategy.Version(),
		CellsCount:      privacy.CountVisible(ra, k),
		KAnonDefault:    k,
		DecayBase:       params.DecayBase,
		AlphaSmoothing:  params.AlphaSmoothing,
		CorridorBoost:   params.CorridorBoost,
		Quantiles:       Quantiles{Q50: q50, Q80: q80, Q95: q95},
		Explanation: []string{
			"tier_adjusted_decay: lambda scales with density tier, denser decays slower",
			"hub_clamp: hub cells cap lambda at the floor fraction of the base rate",
			"neighbor_smoothing: blends each cell with its 1-ring mean prediction",
			"corridor_boost: short-horizon uplift on corridor cells, fading with tau",
			"tier_scaled_confidence: relative interval width widens for sparse tiers",
			"blended_demand_index: predicted over 0.5*max + 0.5*p95 of the visible population",
		},
	}
}
