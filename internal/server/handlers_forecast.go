package server

import (
	"net/http"
	"strconv"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/gridcast/internal/forecast"
)

// forecastCell is the per-cell forecast record. Horizon keys are
// strings so downstream JSON consumers get a stable object rather than
// an array. Numeric fields are nulled for suppressed-but-kept cells.
type forecastCell struct {
	Cell         string                             `json:"h3"`
	Suppressed   bool                               `json:"suppressed"`
	CurrentCount *int                               `json:"current_count"`
	UniqueTrips  *int                               `json:"unique_trips"`
	IsHub        *bool                              `json:"is_hub,omitempty"`
	IsCorridor   *bool                              `json:"is_corridor,omitempty"`
	Decay        *float64                           `json:"decay,omitempty"`
	Predictions  map[string]*forecast.HorizonResult `json:"predictions"`
}

func (s *Server) handleForecastCells(w http.ResponseWriter, r *http.Request) {
	res, err := s.parseResolution(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	horizons, err := s.parseHorizons(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	k, err := s.parseK(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeSuppressed, err := parseBool(r, "include_suppressed", false)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	enrichment, err := parseBool(r, "enrichment", true)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := parseFormat(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	polygon, err := parseBool(r, "polygon", false)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ra, err := s.store.Load(res)
	if err != nil {
		respondLoadError(w, err)
		return
	}

	results := s.strategy.Run(ra, horizons, k)
	cells := make([]forecastCell, 0, len(results))
	for _, cf := range results {
		if cf.Suppressed && !includeSuppressed {
			continue
		}
		cells = append(cells, buildForecastCell(cf, horizons, enrichment))
		if limit > 0 && len(cells) == limit {
			break
		}
	}

	if format == "geojson" {
		s.respondForecastGeoJSON(w, cells, polygon)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"res":              res,
		"horizons_minutes": horizons,
		"forecast_version": s.strategy.Version(),
		"count":            len(cells),
		"cells":            cells,
	})
}

// buildForecastCell projects one engine result into the response
// shape, applying suppression nulling and the enrichment toggle.
func buildForecastCell(cf forecast.CellForecast, horizons []int, enrichment bool) forecastCell {
	out := forecastCell{
		Cell:        cf.Agg.Cell,
		Suppressed:  cf.Suppressed,
		Predictions: make(map[string]*forecast.HorizonResult, len(horizons)),
	}
	if cf.Suppressed {
		// Identifier and flag stay visible; every numeric field is null.
		for _, h := range horizons {
			out.Predictions[strconv.Itoa(h)] = nil
		}
		return out
	}

	count := cf.Agg.PointCount
	trips := cf.Agg.UniqueTrips
	out.CurrentCount = &count
	out.UniqueTrips = &trips
	if enrichment {
		isHub := cf.Agg.IsHub
		isCorridor := cf.Agg.IsCorridor
		decay := cf.Decay
		out.IsHub = &isHub
		out.IsCorridor = &isCorridor
		out.Decay = &decay
	}
	for _, h := range horizons {
		hr := cf.Horizons[h]
		out.Predictions[strconv.Itoa(h)] = &hr
	}
	return out
}

func (s *Server) respondForecastGeoJSON(w http.ResponseWriter, cells []forecastCell, polygon bool) {
	features := make([]*geojson.Feature, 0, len(cells))
	for _, c := range cells {
		props := map[string]any{
			"suppressed":  c.Suppressed,
			"predictions": c.Predictions,
		}
		if c.CurrentCount != nil {
			props["current_count"] = *c.CurrentCount
		}
		if c.Decay != nil {
			props["decay"] = *c.Decay
		}
		feature, err := s.cellFeature(c.Cell, polygon, props)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "geometry derivation failed")
			return
		}
		features = append(features, feature)
	}
	respondJSON(w, http.StatusOK, &geojson.FeatureCollection{Features: features})
}

func (s *Server) handleForecastMeta(w http.ResponseWriter, r *http.Request) {
	res, err := s.parseResolution(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	horizons, err := s.parseHorizons(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ra, err := s.store.Load(res)
	if err != nil {
		respondLoadError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, forecast.BuildMeta(ra, horizons, s.cfg.Privacy.K, s.strategy, s.params))
}
