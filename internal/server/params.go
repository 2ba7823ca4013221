package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Query parameter parsing. Invalid parameters are rejected with 400
// before any computation starts; values are never silently clamped.

func (s *Server) parseResolution(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("res")
	if raw == "" {
		return s.cfg.Grid.DefaultResolution, nil
	}
	res, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Errorf("malformed resolution %q", raw)
	}
	if !s.cfg.SupportedResolution(res) {
		return 0, eris.Errorf("unsupported resolution %d", res)
	}
	return res, nil
}

// defaultHorizons is served when no horizon list is supplied.
var defaultHorizons = []int{5, 10, 15}

func (s *Server) parseHorizons(r *http.Request) ([]int, error) {
	raw := r.URL.Query().Get("horizons")
	if raw == "" {
		return defaultHorizons, nil
	}
	parts := strings.Split(raw, ",")
	horizons := make([]int, 0, len(parts))
	for _, p := range parts {
		h, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, eris.Errorf("malformed horizon %q", p)
		}
		if h < 1 {
			return nil, eris.Errorf("horizon must be a positive number of minutes, got %d", h)
		}
		if h > s.cfg.Forecast.MaxHorizonMinutes {
			return nil, eris.Errorf("horizon %d exceeds maximum %d", h, s.cfg.Forecast.MaxHorizonMinutes)
		}
		horizons = append(horizons, h)
	}
	return horizons, nil
}

func (s *Server) parseK(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("k")
	if raw == "" {
		return s.cfg.Privacy.K, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 {
		return 0, eris.Errorf("k must be a positive integer, got %q", raw)
	}
	return k, nil
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, eris.Errorf("limit must be a positive integer, got %q", raw)
	}
	return limit, nil
}

// parseBool treats an absent parameter as the given default; anything
// but true/false/1/0 is rejected.
func parseBool(r *http.Request, name string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	switch strings.ToLower(raw) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, eris.Errorf("malformed boolean %s=%q", name, raw)
}

func parseMetric(r *http.Request) (string, error) {
	raw := r.URL.Query().Get("metric")
	switch raw {
	case "", "points":
		return "points", nil
	case "trips":
		return "trips", nil
	}
	return "", eris.Errorf("unknown metric %q, want points or trips", raw)
}

func parseFormat(r *http.Request) (string, error) {
	raw := r.URL.Query().Get("format")
	switch raw {
	case "", "json":
		return "json", nil
	case "geojson":
		return "geojson", nil
	}
	return "", eris.Errorf("unknown format %q, want json or geojson", raw)
}

// bbox is a lng/lat bounding box filter applied to cell centers.
type bbox struct {
	minLng, minLat, maxLng, maxLat float64
}

func parseBBox(r *http.Request) (*bbox, error) {
	raw := r.URL.Query().Get("bbox")
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, eris.Errorf("bbox needs minLng,minLat,maxLng,maxLat, got %q", raw)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, eris.Errorf("malformed bbox component %q", p)
		}
		vals[i] = v
	}
	b := &bbox{minLng: vals[0], minLat: vals[1], maxLng: vals[2], maxLat: vals[3]}
	if b.minLng > b.maxLng || b.minLat > b.maxLat {
		return nil, eris.Errorf("bbox is inverted: %q", raw)
	}
	return b, nil
}

func (b *bbox) contains(lat, lng float64) bool {
	return lng >= b.minLng && lng <= b.maxLng && lat >= b.minLat && lat <= b.maxLat
}
