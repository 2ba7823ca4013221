package server

import (
	"net/http"

	"github.com/sells-group/gridcast/internal/artifacts"
)

// handleCorridorsTop serves the strongest OD links, restricted to
// pairs whose endpoints exist in the loaded default-resolution
// snapshot so stale artifacts never surface unknown cells.
func (s *Server) handleCorridorsTop(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 20)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	ra, err := s.store.Load(s.cfg.Grid.DefaultResolution)
	if err != nil {
		respondLoadError(w, err)
		return
	}

	type corridor struct {
		artifacts.ODPair
		Score float64 `json:"score"`
	}
	pairs := s.catalog.TopOD(0)
	var maxTrips int
	loaded := pairs[:0]
	for _, p := range pairs {
		if _, ok := ra.Get(p.Origin); !ok {
			continue
		}
		if _, ok := ra.Get(p.Destination); !ok {
			continue
		}
		loaded = append(loaded, p)
		if p.Trips > maxTrips {
			maxTrips = p.Trips
		}
	}

	corridors := make([]corridor, 0, len(loaded))
	for _, p := range loaded {
		var score float64
		if maxTrips > 0 {
			score = float64(p.Trips) / float64(maxTrips)
		}
		corridors = append(corridors, corridor{ODPair: p, Score: score})
		if len(corridors) == limit {
			break
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":     len(corridors),
		"corridors": corridors,
	})
}

// handleHubCandidates serves the cluster sites ranked by size.
func (s *Server) handleHubCandidates(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 20)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	type candidate struct {
		artifacts.ClusterSite
		HubScore float64 `json:"hub_score"`
	}
	sites := s.catalog.TopClusters(limit)
	var maxCount int
	for _, site := range s.catalog.Clusters {
		if site.Count > maxCount {
			maxCount = site.Count
		}
	}
	candidates := make([]candidate, 0, len(sites))
	for _, site := range sites {
		var score float64
		if maxCount > 0 {
			score = float64(site.Count) / float64(maxCount)
		}
		candidates = append(candidates, candidate{ClusterSite: site, HubScore: score})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":      len(candidates),
		"candidates": candidates,
	})
}

func (s *Server) handleIntelStatus(w http.ResponseWriter, r *http.Request) {
	st := artifacts.StatusOf(s.cfg.Artifacts.Dir)
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       st,
		"loaded_od":    len(s.catalog.ODPairs),
		"loaded_sites": len(s.catalog.Clusters),
		"auto_build":   s.cfg.Artifacts.AutoBuild,
	})
}
