package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/artifacts"
	"github.com/sells-group/gridcast/internal/classify"
	"github.com/sells-group/gridcast/internal/db"
	"github.com/sells-group/gridcast/internal/forecast"
	"github.com/sells-group/gridcast/internal/hexgrid"
	"github.com/sells-group/gridcast/internal/scoring"
)

// service bundles everything the serve command needs.
type service struct {
	Indexer hexgrid.Indexer
	Source  aggregate.Source
	Store   *aggregate.Store
	Engine  *forecast.Engine
	Catalog *artifacts.Catalog
}

func (s *service) Close() {
	if err := s.Source.Close(); err != nil {
		zap.L().Warn("close source", zap.Error(err))
	}
}

// newSource opens the configured aggregate backend.
func newSource(ctx context.Context) (aggregate.Source, error) {
	if cfg.Source.Driver == "postgres" {
		pool, err := db.Connect(ctx, cfg.Source.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return aggregate.NewPostgresSource(pool), nil
	}
	return aggregate.NewSQLiteSource(cfg.Source.Path)
}

// initService wires the indexer, source, artifact catalog, classifier
// enrichers and forecast engine from the loaded configuration.
func initService(ctx context.Context) (*service, error) {
	indexer := hexgrid.NewH3()

	source, err := newSource(ctx)
	if err != nil {
		return nil, err
	}

	catalog, err := artifacts.Load(cfg.Artifacts.Dir)
	if err != nil {
		source.Close()
		return nil, err
	}

	enrichers := []aggregate.Enricher{scoring.Enrich}
	if cfg.Artifacts.AutoBuild && len(catalog.Clusters) == 0 {
		// No cluster artifact on disk: derive hub candidates from each
		// resolution's own top-score cells during load.
		enrichers = append(enrichers, func(ra *aggregate.ResolutionAggregate) error {
			derived := &artifacts.Catalog{
				ODPairs:  catalog.ODPairs,
				Clusters: artifacts.AutoBuildClusters(ra, cfg.Artifacts.HubTopN),
			}
			cls := classify.New(indexer, derived)
			if err := cls.EnrichHubs(ra); err != nil {
				return err
			}
			return cls.EnrichCorridors(ra)
		})
	} else {
		cls := classify.New(indexer, catalog)
		enrichers = append(enrichers, cls.EnrichHubs, cls.EnrichCorridors)
	}

	store := aggregate.NewStore(source, indexer, cfg.Grid.Resolutions, enrichers...)
	engine := forecast.NewEngine(indexer, forecast.FromConfig(cfg.Forecast))

	return &service{
		Indexer: indexer,
		Source:  source,
		Store:   store,
		Engine:  engine,
		Catalog: catalog,
	}, nil
}
