package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/gridcast/internal/privacy"
)

// SchemaVersion identifies the response shapes served by this API.
const SchemaVersion = 1

type resolutionHealth struct {
	Res         int   `json:"res"`
	Cells       int   `json:"cells"`
	TotalPoints int64 `json:"total_points"`
	TotalTrips  int64 `json:"total_trips"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	body := map[string]any{
		"status":         "ok",
		"k_anon_default": s.cfg.Privacy.K,
		"loaded":         snap != nil,
	}
	if snap != nil {
		body["snapshot_loaded_at"] = snap.LoadedAt
		var resolutions []resolutionHealth
		for _, res := range s.cfg.Grid.Resolutions {
			ra, ok := snap.Resolutions[res]
			if !ok {
				continue
			}
			resolutions = append(resolutions, resolutionHealth{
				Res:         res,
				Cells:       ra.Len(),
				TotalPoints: ra.TotalPoints,
				TotalTrips:  ra.TotalTrips,
			})
		}
		body["resolutions"] = resolutions
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"app":              "gridcast",
		"version":          s.version,
		"schema_version":   SchemaVersion,
		"forecast_version": s.strategy.Version(),
	})
}

// handleReload triggers a snapshot rebuild. On failure the prior
// snapshot keeps serving and the error surfaces in the response.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := s.store.Reload(r.Context()); err != nil {
		zap.L().Error("reload failed, prior snapshot retained", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "reload failed; prior snapshot retained")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "reloaded",
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}

// handleLiveMeta summarizes suppression impact per resolution.
func (s *Server) handleLiveMeta(w http.ResponseWriter, r *http.Request) {
	k, err := s.parseK(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap := s.store.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "no aggregate data loaded")
		return
	}

	type resolutionMeta struct {
		Res                   int   `json:"res"`
		CellsBefore           int   `json:"cells_before"`
		CellsAfterSuppression int   `json:"cells_after_suppression"`
		TotalPoints           int64 `json:"total_points"`
		TotalTrips            int64 `json:"total_trips"`
	}
	var resolutions []resolutionMeta
	for _, res := range s.cfg.Grid.Resolutions {
		ra, ok := snap.Resolutions[res]
		if !ok {
			continue
		}
		resolutions = append(resolutions, resolutionMeta{
			Res:                   res,
			CellsBefore:           ra.Len(),
			CellsAfterSuppression: privacy.CountVisible(ra, k),
			TotalPoints:           ra.TotalPoints,
			TotalTrips:            ra.TotalTrips,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"generated_at":   time.Now().UTC(),
		"k_anon_default": s.cfg.Privacy.K,
		"k_applied":      k,
		"resolutions":    resolutions,
	})
}
