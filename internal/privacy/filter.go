// Package privacy implements k-anonymity suppression for cell-level
// views. A cell is suppressed when either its point count or its
// distinct contributing trips fall below the threshold; suppression
// applies uniformly to live counts and forecast output.
package privacy

import "github.com/sells-group/gridcast/internal/aggregate"

// Suppressed reports whether a cell must be hidden at threshold k.
func Suppressed(c *aggregate.CellAggregate, k int) bool {
	return c.PointCount < k || c.UniqueTrips < k
}

// CellView is the suppression-aware projection of a cell. When
// Suppressed is true, Agg is nil and only the identifier remains
// visible; callers must render every numeric field as null.
type CellView struct {
	Cell       string
	Suppressed bool
	Agg        *aggregate.CellAggregate
}

// Apply projects a full cell set into views at threshold k. Suppressed
// cells are dropped unless includeSuppressed is set, in which case they
// are kept as bare identifiers.
func Apply(ra *aggregate.ResolutionAggregate, k int, includeSuppressed bool) []CellView {
	views := make([]CellView, 0, ra.Len())
	for i := range ra.Cells {
		c := &ra.Cells[i]
		if !Suppressed(c, k) {
			views = append(views, CellView{Cell: c.Cell, Agg: c})
			continue
		}
		if includeSuppressed {
			views = append(views, CellView{Cell: c.Cell, Suppressed: true})
		}
	}
	return views
}

// CountVisible returns how many cells survive suppression at k.
func CountVisible(ra *aggregate.ResolutionAggregate, k int) int {
	n := 0
	for i := range ra.Cells {
		if !Suppressed(&ra.Cells[i], k) {
			n++
		}
	}
	return n
}
