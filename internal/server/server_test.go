package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/artifacts"
	"github.com/sells-group/gridcast/internal/config"
	"github.com/sells-group/gridcast/internal/forecast"
	"github.com/sells-group/gridcast/internal/hexgrid"
	"github.com/sells-group/gridcast/internal/scoring"
)

type stubSource struct {
	records map[int][]aggregate.CellRecord
	err     error
}

func (s *stubSource) Aggregates(_ context.Context, res int) ([]aggregate.CellRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records[res], nil
}

func (s *stubSource) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{AllowOrigins: []string{"*"}},
		Grid:    config.GridConfig{Resolutions: []int{8}, DefaultResolution: 8},
		Privacy: config.PrivacyConfig{K: 20},
		Forecast: config.ForecastConfig{
			DecayBase:         0.15,
			AlphaSmoothing:    0.7,
			CorridorBoost:     0.10,
			CorridorTauHours:  0.5,
			TierMultipliers:   config.TierValues{Low: 1.3, Medium: 1.0, High: 0.55},
			HubFloorFraction:  0.5,
			IntervalWidths:    config.TierValues{Low: 0.35, Medium: 0.20, High: 0.12},
			MaxHorizonMinutes: 120,
		},
		Artifacts: config.ArtifactsConfig{Dir: "./artifacts"},
	}
}

type fixture struct {
	server *Server
	source *stubSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	idx := hexgrid.NewStatic(map[string][]string{
		"busy":  {"quiet"},
		"quiet": {"busy"},
		"tiny":  nil,
	})
	idx.Boundaries["busy"] = []hexgrid.Vertex{
		{Lat: 40.70, Lng: -74.01}, {Lat: 40.71, Lng: -74.01}, {Lat: 40.71, Lng: -74.00},
	}
	idx.Centers["busy"] = hexgrid.Vertex{Lat: 40.705, Lng: -74.005}

	source := &stubSource{records: map[int][]aggregate.CellRecord{
		8: {
			{Cell: "busy", PointCount: 100, UniqueTrips: 60},
			{Cell: "quiet", PointCount: 40, UniqueTrips: 30},
			{Cell: "tiny", PointCount: 3, UniqueTrips: 2},
		},
	}}
	store := aggregate.NewStore(source, idx, []int{8}, scoring.Enrich)
	require.NoError(t, store.Reload(context.Background()))

	cfg := testConfig()
	engine := forecast.NewEngine(idx, forecast.FromConfig(cfg.Forecast))
	catalog := &artifacts.Catalog{
		ODPairs: []artifacts.ODPair{
			{Origin: "busy", Destination: "quiet", Trips: 90},
			{Origin: "busy", Destination: "ghost", Trips: 500},
		},
		Clusters: []artifacts.ClusterSite{
			{ClusterID: "c1", Lat: 40.705, Lng: -74.005, Count: 300},
			{ClusterID: "c2", Lat: 40.8, Lng: -73.9, Count: 30},
		},
	}
	return &fixture{
		server: New(cfg, store, engine, engine.Params(), idx, catalog, "1.2.3"),
		source: source,
	}
}

func (f *fixture) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return f.request(t, http.MethodGet, path)
}

func (f *fixture) request(t *testing.T, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["loaded"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestVersion(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/version")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gridcast", body["app"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "heuristic_v2", body["forecast_version"])
}

func TestReload_FailureKeepsServing(t *testing.T) {
	f := newFixture(t)
	f.source.err = eris.New("backend gone")

	rec, body := f.request(t, http.MethodPost, "/admin/reload")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["detail"], "prior snapshot retained")

	// Prior snapshot still answers.
	rec, _ = f.get(t, "/heatmap/cells?res=8")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLiveCells_SuppressionDefaultDrops(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/heatmap/cells")

	require.Equal(t, http.StatusOK, rec.Code)
	cells := body["cells"].([]any)
	// tiny (3 points) sits below k=20 and disappears.
	require.Len(t, cells, 2)
	first := cells[0].(map[string]any)
	assert.Equal(t, "busy", first["h3"])
	assert.Equal(t, float64(100), first["value"])
}

func TestLiveCells_IncludeSuppressedNullsNumericFields(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/heatmap/cells?include_suppressed=true")

	require.Equal(t, http.StatusOK, rec.Code)
	cells := body["cells"].([]any)
	require.Len(t, cells, 3)

	last := cells[2].(map[string]any)
	assert.Equal(t, "tiny", last["h3"])
	assert.Equal(t, true, last["suppressed"])
	assert.Nil(t, last["point_count"])
	assert.Nil(t, last["unique_trips"])
	assert.Nil(t, last["score"])
	assert.Nil(t, last["value"])
}

func TestLiveCells_KOverride(t *testing.T) {
	f := newFixture(t)
	_, body := f.get(t, "/heatmap/cells?k=1")
	assert.Len(t, body["cells"].([]any), 3)
}

func TestLiveCells_TripsMetricAndLimit(t *testing.T) {
	f := newFixture(t)
	_, body := f.get(t, "/heatmap/cells?metric=trips&limit=1")

	cells := body["cells"].([]any)
	require.Len(t, cells, 1)
	assert.Equal(t, float64(60), cells[0].(map[string]any)["value"])
}

func TestLiveCells_InvalidParams(t *testing.T) {
	f := newFixture(t)
	paths := []string{
		"/heatmap/cells?res=12",
		"/heatmap/cells?res=abc",
		"/heatmap/cells?metric=bogus",
		"/heatmap/cells?k=0",
		"/heatmap/cells?k=-3",
		"/heatmap/cells?format=xml",
		"/heatmap/cells?include_suppressed=maybe",
		"/heatmap/cells?limit=0",
		"/heatmap/cells?bbox=1,2,3",
		"/heatmap/cells?bbox=3,2,1,0",
	}
	for _, path := range paths {
		rec, body := f.get(t, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.NotEmpty(t, body["detail"], path)
	}
}

func TestLiveCells_GeoJSONPolygon(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/heatmap/cells?format=geojson&polygon=true&limit=1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "FeatureCollection", body["type"])
	features := body["features"].([]any)
	require.Len(t, features, 1)
	geometry := features[0].(map[string]any)["geometry"].(map[string]any)
	assert.Equal(t, "Polygon", geometry["type"])
}

func TestTopCells_NeverIncludesSuppressed(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/heatmap/top?limit=10")

	require.Equal(t, http.StatusOK, rec.Code)
	cells := body["cells"].([]any)
	require.Len(t, cells, 2)
	for _, c := range cells {
		assert.NotEqual(t, "tiny", c.(map[string]any)["h3"])
	}
}

func TestForecastCells(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/heatmap/forecast/cells?horizons=5,15")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "heuristic_v2", body["forecast_version"])
	cells := body["cells"].([]any)
	require.Len(t, cells, 2)

	first := cells[0].(map[string]any)
	predictions := first["predictions"].(map[string]any)
	require.Contains(t, predictions, "5")
	require.Contains(t, predictions, "15")
	p5 := predictions["5"].(map[string]any)
	assert.Greater(t, p5["predicted"].(float64), 0.0)
	assert.LessOrEqual(t, p5["lower"].(float64), p5["predicted"].(float64))
	assert.GreaterOrEqual(t, p5["upper"].(float64), p5["predicted"].(float64))
	assert.Contains(t, first, "decay")
}

func TestForecastCells_EnrichmentOff(t *testing.T) {
	f := newFixture(t)
	_, body := f.get(t, "/heatmap/forecast/cells?enrichment=false")

	first := body["cells"].([]any)[0].(map[string]any)
	assert.NotContains(t, first, "decay")
	assert.NotContains(t, first, "is_hub")
	assert.NotContains(t, first, "is_corridor")
}

func TestForecastCells_SuppressedIncluded(t *testing.T) {
	f := newFixture(t)
	_, body := f.get(t, "/heatmap/forecast/cells?include_suppressed=true")

	cells := body["cells"].([]any)
	require.Len(t, cells, 3)
	var suppressed map[string]any
	for _, c := range cells {
		m := c.(map[string]any)
		if m["h3"] == "tiny" {
			suppressed = m
		}
	}
	require.NotNil(t, suppressed)
	assert.Equal(t, true, suppressed["suppressed"])
	assert.Nil(t, suppressed["current_count"])
	for _, v := range suppressed["predictions"].(map[string]any) {
		assert.Nil(t, v)
	}
}

func TestForecastCells_InvalidHorizons(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{
		"/heatmap/forecast/cells?horizons=0",
		"/heatmap/forecast/cells?horizons=-5",
		"/heatmap/forecast/cells?horizons=5,abc",
		"/heatmap/forecast/cells?horizons=999",
	} {
		rec, _ := f.get(t, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestForecastMeta(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/heatmap/forecast/meta?horizons=5,10")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "heuristic_v2", body["forecast_version"])
	assert.Equal(t, float64(8), body["resolution"])
	// Counted after suppression.
	assert.Equal(t, float64(2), body["cells_count"])
	assert.Equal(t, float64(20), body["k_anon_default"])
	assert.NotEmpty(t, body["explanation"])
}

func TestLiveMeta(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/heatmap/meta")

	require.Equal(t, http.StatusOK, rec.Code)
	resolutions := body["resolutions"].([]any)
	require.Len(t, resolutions, 1)
	r8 := resolutions[0].(map[string]any)
	assert.Equal(t, float64(3), r8["cells_before"])
	assert.Equal(t, float64(2), r8["cells_after_suppression"])
}

func TestCorridorsTop_RestrictedToLoadedCells(t *testing.T) {
	f := newFixture(t)
	rec, body := f.get(t, "/intel/corridors/top")

	require.Equal(t, http.StatusOK, rec.Code)
	corridors := body["corridors"].([]any)
	// The pair ending at "ghost" is filtered out.
	require.Len(t, corridors, 1)
	first := corridors[0].(map[string]any)
	assert.Equal(t, "busy", first["origin"])
	assert.Equal(t, float64(1), first["score"])
}

func TestHubCandidates(t *testing.T) {
	f := newFixture(t)
	_, body := f.get(t, "/intel/hubs/candidates?limit=1")

	candidates := body["candidates"].([]any)
	require.Len(t, candidates, 1)
	first := candidates[0].(map[string]any)
	assert.Equal(t, "c1", first["cluster_id"])
	assert.Equal(t, float64(1), first["hub_score"])
}

func TestNoSnapshotReturns503(t *testing.T) {
	idx := hexgrid.NewStatic(nil)
	cfg := testConfig()
	store := aggregate.NewStore(&stubSource{}, idx, []int{8})
	engine := forecast.NewEngine(idx, forecast.FromConfig(cfg.Forecast))
	s := New(cfg, store, engine, engine.Params(), idx, nil, "dev")

	for _, path := range []string{"/heatmap/cells", "/heatmap/top", "/heatmap/forecast/cells", "/heatmap/forecast/meta", "/heatmap/meta"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}
