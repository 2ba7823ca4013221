package aggregate

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/gridcast/internal/hexgrid"
)

// TracePoint is one anonymized observation from a raw trace file.
type TracePoint struct {
	TripID string
	Lat    float64
	Lng    float64
}

// BoundaryFilter decides whether a point belongs to the service area.
// A nil filter admits everything.
type BoundaryFilter interface {
	Contains(lat, lng float64) bool
}

// cellCounter accumulates per-cell counts for one resolution.
type cellCounter struct {
	points int
	trips  map[string]struct{}
}

// AggregateTraces indexes raw trace points into cell aggregates for
// every requested resolution. Each resolution is counted by its own
// goroutine off a fan-out of the shared read loop, so a single pass
// over the file feeds all resolutions.
func AggregateTraces(ctx context.Context, r io.Reader, indexer hexgrid.Indexer, resolutions []int, filter BoundaryFilter) (map[int][]CellRecord, error) {
	points, err := ReadTraceCSV(r)
	if err != nil {
		return nil, err
	}
	return aggregatePoints(ctx, points, indexer, resolutions, filter)
}

// AggregateTraceFile is AggregateTraces over a file path.
func AggregateTraceFile(ctx context.Context, path string, indexer hexgrid.Indexer, resolutions []int, filter BoundaryFilter) (map[int][]CellRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "aggregate: open trace file %s", path)
	}
	defer f.Close()
	return AggregateTraces(ctx, f, indexer, resolutions, filter)
}

func aggregatePoints(ctx context.Context, points []TracePoint, indexer hexgrid.Indexer, resolutions []int, filter BoundaryFilter) (map[int][]CellRecord, error) {
	admitted := points[:0]
	dropped := 0
	for _, p := range points {
		if filter != nil && !filter.Contains(p.Lat, p.Lng) {
			dropped++
			continue
		}
		admitted = append(admitted, p)
	}
	if dropped > 0 {
		zap.L().Info("dropped points outside service boundary", zap.Int("dropped", dropped))
	}

	perRes := make([][]CellRecord, len(resolutions))
	g, ctx := errgroup.WithContext(ctx)

	for i, res := range resolutions {
		g.Go(func() error {
			counters := make(map[string]*cellCounter)
			for _, p := range admitted {
				if err := ctx.Err(); err != nil {
					return err
				}
				cell, err := indexer.CellOf(p.Lat, p.Lng, res)
				if err != nil {
					return eris.Wrapf(err, "aggregate: index trace point at res %d", res)
				}
				c, ok := counters[cell]
				if !ok {
					c = &cellCounter{trips: make(map[string]struct{})}
					counters[cell] = c
				}
				c.points++
				c.trips[p.TripID] = struct{}{}
			}

			records := make([]CellRecord, 0, len(counters))
			for cell, c := range counters {
				records = append(records, CellRecord{
					Cell:        cell,
					PointCount:  c.points,
					UniqueTrips: len(c.trips),
				})
			}

			perRes[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make(map[int][]CellRecord, len(resolutions))
	for i, res := range resolutions {
		results[res] = perRes[i]
	}
	return results, nil
}

// ReadTraceCSV parses an anonymized trace file. The header must carry
// randomized_id, lat and lng columns in any order; rows with malformed
// coordinates are rejected rather than skipped, since silent drops bias
// the aggregate.
func ReadTraceCSV(r io.Reader) ([]TracePoint, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "aggregate: read trace header")
	}
	idx := map[string]int{}
	for i, name := range header {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, col := range []string{"randomized_id", "lat", "lng"} {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("aggregate: trace file missing column %q", col)
		}
	}

	var points []TracePoint
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "aggregate: read trace line %d", line)
		}
		lat, err := strconv.ParseFloat(rec[idx["lat"]], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "aggregate: bad lat on line %d", line)
		}
		lng, err := strconv.ParseFloat(rec[idx["lng"]], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "aggregate: bad lng on line %d", line)
		}
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return nil, eris.Errorf("aggregate: coordinates out of range on line %d", line)
		}
		points = append(points, TracePoint{
			TripID: rec[idx["randomized_id"]],
			Lat:    lat,
			Lng:    lng,
		})
	}
	return points, nil
}
