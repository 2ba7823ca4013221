package server

import (
	"net/http"
	"sort"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/privacy"
	"github.com/sells-group/gridcast/internal/scoring"
)

// liveCell is the suppression-aware live view of one cell. Numeric
// fields are pointers so suppressed-but-included cells render them as
// null instead of zero.
type liveCell struct {
	Cell          string   `json:"h3"`
	Suppressed    bool     `json:"suppressed"`
	PointCount    *int     `json:"point_count"`
	UniqueTrips   *int     `json:"unique_trips"`
	SharePoints   *float64 `json:"share_points"`
	ShareTrips    *float64 `json:"share_trips"`
	Score         *float64 `json:"score"`
	ScoreQuantile *float64 `json:"score_quantile"`
	Value         *float64 `json:"value"`
	Lat           *float64 `json:"lat_center"`
	Lng           *float64 `json:"lng_center"`
}

func (s *Server) handleLiveCells(w http.ResponseWriter, r *http.Request) {
	res, err := s.parseResolution(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	metric, err := parseMetric(r)
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
	box, err := parseBBox(r)
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

	views := privacy.Apply(ra, k, includeSuppressed)
	cells := make([]liveCell, 0, len(views))
	for _, v := range views {
		if v.Suppressed {
			cells = append(cells, liveCell{Cell: v.Cell, Suppressed: true})
			continue
		}
		if box != nil && !box.contains(v.Agg.Lat, v.Agg.Lng) {
			continue
		}
		cells = append(cells, s.liveView(ra, v.Agg, metric))
	}

	// Value desc; suppressed cells (nil value) sink to the end.
	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].Value == nil {
			return false
		}
		if cells[j].Value == nil {
			return true
		}
		return *cells[i].Value > *cells[j].Value
	})
	if limit > 0 && limit < len(cells) {
		cells = cells[:limit]
	}

	if format == "geojson" {
		s.respondLiveGeoJSON(w, cells, polygon)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"res":    res,
		"metric": metric,
		"count":  len(cells),
		"cells":  cells,
	})
}

func (s *Server) liveView(ra *aggregate.ResolutionAggregate, c *aggregate.CellAggregate, metric string) liveCell {
	points := c.PointCount
	trips := c.UniqueTrips
	score := c.Score
	quantile := c.ScoreQuantile
	lat, lng := c.Lat, c.Lng

	var sharePoints, shareTrips float64
	if ra.TotalPoints > 0 {
		sharePoints = float64(points) / float64(ra.TotalPoints)
	}
	if ra.TotalTrips > 0 {
		shareTrips = float64(trips) / float64(ra.TotalTrips)
	}

	value := float64(points)
	if metric == "trips" {
		value = float64(trips)
	}
	return liveCell{
		Cell:          c.Cell,
		PointCount:    &points,
		UniqueTrips:   &trips,
		SharePoints:   &sharePoints,
		ShareTrips:    &shareTrips,
		Score:         &score,
		ScoreQuantile: &quantile,
		Value:         &value,
		Lat:           &lat,
		Lng:           &lng,
	}
}

func (s *Server) respondLiveGeoJSON(w http.ResponseWriter, cells []liveCell, polygon bool) {
	features := make([]*geojson.Feature, 0, len(cells))
	for _, c := range cells {
		props := map[string]any{"suppressed": c.Suppressed}
		if !c.Suppressed {
			props["point_count"] = *c.PointCount
			props["unique_trips"] = *c.UniqueTrips
			props["share_points"] = *c.SharePoints
			props["share_trips"] = *c.ShareTrips
			props["score"] = *c.Score
			props["value"] = *c.Value
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

// handleTopCells serves the score ranking. Suppressed cells never
// appear here regardless of any toggle.
func (s *Server) handleTopCells(w http.ResponseWriter, r *http.Request) {
	res, err := s.parseResolution(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	metric, err := parseMetric(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, 20)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ra, err := s.store.Load(res)
	if err != nil {
		respondLoadError(w, err)
		return
	}

	type topCell struct {
		Cell          string  `json:"h3"`
		PointCount    int     `json:"point_count"`
		UniqueTrips   int     `json:"unique_trips"`
		Score         float64 `json:"score"`
		ScoreQuantile float64 `json:"score_quantile"`
		Tier          string  `json:"tier"`
		Value         float64 `json:"value"`
	}
	var cells []topCell
	for _, c := range scoring.Top(ra, 0) {
		if privacy.Suppressed(c, s.cfg.Privacy.K) {
			continue
		}
		value := float64(c.PointCount)
		if metric == "trips" {
			value = float64(c.UniqueTrips)
		}
		cells = append(cells, topCell{
			Cell:          c.Cell,
			PointCount:    c.PointCount,
			UniqueTrips:   c.UniqueTrips,
			Score:         c.Score,
			ScoreQuantile: c.ScoreQuantile,
			Tier:          string(c.Tier),
			Value:         value,
		})
		if len(cells) == limit {
			break
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"res":    res,
		"metric": metric,
		"count":  len(cells),
		"cells":  cells,
	})
}
