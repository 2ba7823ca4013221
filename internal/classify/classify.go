// Package classify labels cells as hubs and corridor members from the
// OD/cluster artifacts. Labels are attached during snapshot load and
// are immutable afterwards, like every other cell attribute.
package classify

import (
	"go.uber.org/zap"

	"github.com/sells-group/gridcast/internal/aggregate"
	"github.com/sells-group/gridcast/internal/artifacts"
	"github.com/sells-group/gridcast/internal/hexgrid"
)

// DefaultPeakRatio is how much a hub candidate's point count must
// exceed its 1-ring neighbor mean. A busy but spatially uniform area
// fails this test and is not a hub.
const DefaultPeakRatio = 1.5

// Classifier attaches is_hub and is_corridor labels to a resolution
// aggregate. It is wired into the store as a pair of enrichers.
type Classifier struct {
	indexer   hexgrid.Indexer
	catalog   *artifacts.Catalog
	peakRatio float64
}

// New builds a classifier over an artifact catalog. A nil or empty
// catalog yields all-false labels.
func New(indexer hexgrid.Indexer, catalog *artifacts.Catalog) *Classifier {
	return &Classifier{
		indexer:   indexer,
		catalog:   catalog,
		peakRatio: DefaultPeakRatio,
	}
}

// EnrichHubs marks cells containing a cluster site that stand out as a
// concentrated peak against their immediate ring.
func (c *Classifier) EnrichHubs(ra *aggregate.ResolutionAggregate) error {
	if c.catalog == nil || len(c.catalog.Clusters) == 0 {
		return nil
	}
	marked := 0
	for _, site := range c.catalog.Clusters {
		cellID, err := c.indexer.CellOf(site.Lat, site.Lng, ra.Res)
		if err != nil {
			// A site outside the indexable range is noise, not a failure.
			zap.L().Debug("cluster site not indexable",
				zap.String("cluster_id", site.ClusterID), zap.Error(err))
			continue
		}
		cell, ok := ra.Get(cellID)
		if !ok || cell.PointCount == 0 || cell.IsHub {
			continue
		}
		if c.isPeak(ra, cell) {
			cell.IsHub = true
			marked++
		}
	}
	zap.L().Debug("hub classification done", zap.Int("res", ra.Res), zap.Int("hubs", marked))
	return nil
}

// isPeak reports whether a cell's count dominates its 1-ring neighbor
// mean. An isolated cell with no loaded neighbors counts as a peak.
func (c *Classifier) isPeak(ra *aggregate.ResolutionAggregate, cell *aggregate.CellAggregate) bool {
	ring, err := c.indexer.Ring(cell.Cell)
	if err != nil {
		return false
	}
	var sum float64
	n := 0
	for _, id := range ring {
		if neighbor, ok := ra.Get(id); ok {
			sum += float64(neighbor.PointCount)
			n++
		}
	}
	if n == 0 {
		return true
	}
	return float64(cell.PointCount) >= c.peakRatio*(sum/float64(n))
}

// EnrichCorridors marks cells that appear as an endpoint of a recurring
// OD link. Low-tier cells are never flagged, even when path data
// mentions them.
func (c *Classifier) EnrichCorridors(ra *aggregate.ResolutionAggregate) error {
	if c.catalog == nil || len(c.catalog.ODPairs) == 0 {
		return nil
	}
	marked := 0
	for _, pair := range c.catalog.ODPairs {
		for _, id := range []string{pair.Origin, pair.Destination} {
			cell, ok := ra.Get(id)
			if !ok || cell.IsCorridor || cell.Tier == aggregate.TierLow {
				continue
			}
			cell.IsCorridor = true
			marked++
		}
	}
	zap.L().Debug("corridor classification done", zap.Int("res", ra.Res), zap.Int("corridors", marked))
	return nil
}
