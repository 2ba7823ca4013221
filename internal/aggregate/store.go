package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gridcast/internal/hexgrid"
)

// CellRecord is one raw row from a Source, before tiering and
// enrichment.
type CellRecord struct {
	Cell        string
	PointCount  int
	UniqueTrips int
}

// Source supplies raw per-cell aggregates for a resolution. A missing
// backing table or file yields ErrDataUnavailable; an empty slice is a
// valid, distinct outcome.
type Source interface {
	Aggregates(ctx context.Context, res int) ([]CellRecord, error)
	Close() error
}

// ResolutionWriter is the optional write side of a Source, used by the
// build command to replace the backing table.
type ResolutionWriter interface {
	Migrate(ctx context.Context) error
	ReplaceResolution(ctx context.Context, res int, records []CellRecord) error
}

// Enricher mutates a resolution aggregate while it is still private to
// the load in progress (scores, hub/corridor labels). Enrichers never
// run against a published snapshot.
type Enricher func(ra *ResolutionAggregate) error

// Store holds the current snapshot and serves it to readers under a
// read-mostly, rarely-written regime. Reload builds a complete new
// snapshot aside and swaps a single pointer, so readers in flight see
// either the fully-old or fully-new generation, never a mix.
type Store struct {
	source      Source
	indexer     hexgrid.Indexer
	resolutions []int
	enrichers   []Enricher

	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore creates an empty store. Call Reload to load the first
// snapshot.
func NewStore(source Source, indexer hexgrid.Indexer, resolutions []int, enrichers ...Enricher) *Store {
	return &Store{
		source:      source,
		indexer:     indexer,
		resolutions: resolutions,
		enrichers:   enrichers,
	}
}

// Load returns the current aggregate for a resolution, or
// ErrDataUnavailable when no snapshot is loaded or the resolution is
// not part of it.
func (s *Store) Load(res int) (*ResolutionAggregate, error) {
	snap := s.Snapshot()
	if snap == nil {
		return nil, eris.Wrapf(ErrDataUnavailable, "aggregate: no snapshot loaded (res %d)", res)
	}
	ra, ok := snap.Resolutions[res]
	if !ok {
		return nil, eris.Wrapf(ErrDataUnavailable, "aggregate: resolution %d not loaded", res)
	}
	return ra, nil
}

// Snapshot returns the current snapshot, or nil before the first
// successful reload.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Reload builds a complete new snapshot from the source and publishes
// it. On failure the prior snapshot remains authoritative and keeps
// serving; the error is returned for logging.
func (s *Store) Reload(ctx context.Context) error {
	id := uuid.NewString()
	log := zap.L().With(zap.String("reload_id", id))
	start := time.Now()

	next := &Snapshot{
		ID:          id,
		LoadedAt:    time.Now().UTC(),
		Resolutions: make(map[int]*ResolutionAggregate, len(s.resolutions)),
	}

	for _, res := range s.resolutions {
		ra, err := s.buildResolution(ctx, res)
		if err != nil {
			return eris.Wrapf(err, "aggregate: reload failed at resolution %d", res)
		}
		next.Resolutions[res] = ra
		log.Info("loaded resolution",
			zap.Int("res", res),
			zap.Int("cells", ra.Len()),
			zap.Int64("points", ra.TotalPoints),
		)
	}

	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()

	log.Info("snapshot published", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Store) buildResolution(ctx context.Context, res int) (*ResolutionAggregate, error) {
	records, err := s.source.Aggregates(ctx, res)
	if err != nil {
		return nil, err
	}

	ra := &ResolutionAggregate{
		Res:   res,
		Cells: make([]CellAggregate, 0, len(records)),
	}
	for _, r := range records {
		if r.PointCount < 0 {
			return nil, eris.Errorf("aggregate: negative point_count for cell %s", r.Cell)
		}
		unique := r.UniqueTrips
		if unique > r.PointCount {
			// A trip contributes at least one point, so this can only be
			// source corruption. Clamp and keep loading.
			zap.L().Warn("unique_trips exceeds point_count, clamping",
				zap.String("cell", r.Cell),
				zap.Int("unique_trips", unique),
				zap.Int("point_count", r.PointCount),
			)
			unique = r.PointCount
		}
		cell := CellAggregate{
			Cell:        r.Cell,
			Res:         res,
			PointCount:  r.PointCount,
			UniqueTrips: unique,
		}
		if center, err := s.indexer.Center(r.Cell); err == nil {
			cell.Lat = center.Lat
			cell.Lng = center.Lng
		}
		ra.Cells = append(ra.Cells, cell)
		ra.TotalPoints += int64(r.PointCount)
		ra.TotalTrips += int64(unique)
	}

	ra.Reindex()
	ra.assignTiers()

	for _, enrich := range s.enrichers {
		if err := enrich(ra); err != nil {
			return nil, err
		}
	}
	return ra, nil
}
