package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// tuningProfile is the YAML shape of a forecast tuning file. Pointer
// fields distinguish "absent" from an explicit zero.
type tuningProfile struct {
	DecayBase        *float64 `yaml:"decay_base"`
	AlphaSmoothing   *float64 `yaml:"alpha_smoothing"`
	CorridorBoost    *float64 `yaml:"corridor_boost"`
	CorridorTauHours *float64 `yaml:"corridor_tau_hours"`
	HubFloorFraction *float64 `yaml:"hub_floor_fraction"`
	TierMultipliers  *struct {
		Low    *float64 `yaml:"low"`
		Medium *float64 `yaml:"medium"`
		High   *float64 `yaml:"high"`
	} `yaml:"tier_multipliers"`
	IntervalWidths *struct {
		Low    *float64 `yaml:"low"`
		Medium *float64 `yaml:"medium"`
		High   *float64 `yaml:"high"`
	} `yaml:"interval_widths"`
}

// ApplyTuning overlays a YAML tuning profile onto the forecast
// configuration. The file has a top-level "forecast" key; only keys
// present in the file are overridden.
func ApplyTuning(fc *ForecastConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read tuning profile %s", path)
	}

	var wrapper struct {
		Forecast tuningProfile `yaml:"forecast"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return eris.Wrap(err, "config: parse tuning profile")
	}

	p := wrapper.Forecast
	setIf(&fc.DecayBase, p.DecayBase)
	setIf(&fc.AlphaSmoothing, p.AlphaSmoothing)
	setIf(&fc.CorridorBoost, p.CorridorBoost)
	setIf(&fc.CorridorTauHours, p.CorridorTauHours)
	setIf(&fc.HubFloorFraction, p.HubFloorFraction)
	if p.TierMultipliers != nil {
		setIf(&fc.TierMultipliers.Low, p.TierMultipliers.Low)
		setIf(&fc.TierMultipliers.Medium, p.TierMultipliers.Medium)
		setIf(&fc.TierMultipliers.High, p.TierMultipliers.High)
	}
	if p.IntervalWidths != nil {
		setIf(&fc.IntervalWidths.Low, p.IntervalWidths.Low)
		setIf(&fc.IntervalWidths.Medium, p.IntervalWidths.Medium)
		setIf(&fc.IntervalWidths.High, p.IntervalWidths.High)
	}
	return nil
}

func setIf(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
