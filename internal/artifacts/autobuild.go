package artifacts

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/gridcast/internal/aggregate"
)

// AutoBuildClusters derives synthetic cluster sites from the top-score
// cells of a loaded snapshot. Used when no stop_clusters.csv exists but
// auto-build is enabled, so hub classification still has candidates.
func AutoBuildClusters(ra *aggregate.ResolutionAggregate, topN int) []ClusterSite {
	if ra == nil || ra.Len() == 0 || topN < 1 {
		return nil
	}
	cells := make([]*aggregate.CellAggregate, ra.Len())
	for i := range ra.Cells {
		cells[i] = &ra.Cells[i]
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].Score > cells[j].Score })
	if topN < len(cells) {
		cells = cells[:topN]
	}

	sites := make([]ClusterSite, 0, len(cells))
	for _, c := range cells {
		if c.PointCount == 0 {
			continue
		}
		sites = append(sites, ClusterSite{
			ClusterID: c.Cell,
			Lat:       c.Lat,
			Lng:       c.Lng,
			Count:     c.PointCount,
		})
	}
	zap.L().Info("auto-built cluster sites from snapshot",
		zap.Int("res", ra.Res),
		zap.Int("sites", len(sites)),
	)
	return sites
}
