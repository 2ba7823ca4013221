package forecast

import (
	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/config"
)

// TierValues holds one tuning value per density tier.
type TierValues struct {
	Low    float64 `json:"low" yaml:"low"`
	Medium float64 `json:"medium" yaml:"medium"`
	High   float64 `json:"high" yaml:"high"`
}

// Params are the tuning knobs of the heuristic engine, threaded
// explicitly into every computation rather than read from ambient
// state.
type Params struct {
	// DecayBase is lambda_0, the per-hour baseline decay rate.
	DecayBase float64 `json:"decay_base" yaml:"decay_base"`
	// AlphaSmoothing weights a cell's own raw prediction against its
	// 1-ring neighbor mean; 1 disables smoothing.
	AlphaSmoothing float64 `json:"alpha_smoothing" yaml:"alpha_smoothing"`
	// CorridorBoost is the fractional short-horizon uplift for corridor
	// cells; CorridorTauHours controls how fast it fades.
	CorridorBoost    float64 `json:"corridor_boost" yaml:"corridor_boost"`
	CorridorTauHours float64 `json:"corridor_tau_hours" yaml:"corridor_tau_hours"`
	// TierMultipliers scale lambda_0 per density tier. Denser tiers
	// carry smaller multipliers: established traffic decays slower.
	TierMultipliers TierValues `json:"tier_multipliers" yaml:"tier_multipliers"`
	// HubFloorFraction caps a hub's effective lambda at this fraction of
	// lambda_0, so hubs never decay faster than that floor persistence.
	HubFloorFraction float64 `json:"hub_floor_fraction" yaml:"hub_floor_fraction"`
	// IntervalWidths are relative confidence half-widths per tier;
	// sparse tiers get wider bands.
	IntervalWidths TierValues `json:"interval_widths" yaml:"interval_widths"`
}

// FromConfig converts the configuration section into engine params.
func FromConfig(fc config.ForecastConfig) Params {
	return Params{
		DecayBase:        fc.DecayBase,
		AlphaSmoothing:   fc.AlphaSmoothing,
		CorridorBoost:    fc.CorridorBoost,
		CorridorTauHours: fc.CorridorTauHours,
		TierMultipliers:  TierValues(fc.TierMultipliers),
		HubFloorFraction: fc.HubFloorFraction,
		IntervalWidths:   TierValues(fc.IntervalWidths),
	}
}

func (tv TierValues) forTier(tier aggregate.Tier) float64 {
	switch tier {
	case aggregate.TierHigh:
		return tv.High
	case aggregate.TierMedium:
		return tv.Medium
	default:
		return tv.Low
	}
}
