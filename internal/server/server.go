// Package server exposes the loaded demand snapshot and the heuristic
// forecast over an HTTP API. Handlers are pure reads over the current
// snapshot; the only mutating route is the admin reload.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/artifacts"
	"github.com/sells-group/gridcast/internal/config"
	"github.com/sells-group/gridcast/internal/forecast"
	"github.com/sells-group/gridcast/internal/hexgrid"
)

// Server wires the aggregate store, forecast strategy and artifact
// catalog behind the HTTP surface.
type Server struct {
	cfg      *config.Config
	store    *aggregate.Store
	strategy forecast.Strategy
	params   forecast.Params
	indexer  hexgrid.Indexer
	catalog  *artifacts.Catalog
	version  string
}

// New builds a server. The catalog may be nil when no artifacts are
// loaded; intel endpoints then serve empty sets.
func New(cfg *config.Config, store *aggregate.Store, strategy forecast.Strategy, params forecast.Params, indexer hexgrid.Indexer, catalog *artifacts.Catalog, version string) *Server {
	if catalog == nil {
		catalog = &artifacts.Catalog{}
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		strategy: strategy,
		params:   params,
		indexer:  indexer,
		catalog:  catalog,
		version:  version,
	}
}

// Router assembles the route tree with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	if s.cfg.Server.RateLimit > 0 {
		r.Use(rateLimitMiddleware(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Post("/admin/reload", s.handleReload)

	r.Route("/heatmap", func(r chi.Router) {
		r.Get("/meta", s.handleLiveMeta)
		r.Get("/cells", s.handleLiveCells)
		r.Get("/top", s.handleTopCells)
		r.Route("/forecast", func(r chi.Router) {
			r.Get("/cells", s.handleForecastCells)
			r.Get("/meta", s.handleForecastMeta)
		})
	})

	r.Route("/intel", func(r chi.Router) {
		r.Get("/corridors/top", s.handleCorridorsTop)
		r.Get("/hubs/candidates", s.handleHubCandidates)
		r.Get("/status", s.handleIntelStatus)
	})

	return r
}
