package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	breaks := TierBreaks{P50: 10, P90: 50}

	tests := []struct {
		name  string
		count float64
		want  Tier
	}{
		{"zero", 0, TierLow},
		{"at p50", 10, TierLow},
		{"just above p50", 10.5, TierMedium},
		{"at p90", 50, TierMedium},
		{"above p90", 51, TierHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tierFor(tt.count, breaks))
		})
	}
}

func TestAssignTiers(t *testing.T) {
	ra := &ResolutionAggregate{Res: 8}
	for _, count := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 100} {
		ra.Cells = append(ra.Cells, CellAggregate{PointCount: count})
	}
	ra.assignTiers()

	assert.Equal(t, TierLow, ra.Cells[0].Tier)
	assert.Equal(t, TierHigh, ra.Cells[9].Tier)
	assert.Greater(t, ra.TierBreaks.P90, ra.TierBreaks.P50)
}

func TestAssignTiers_Empty(t *testing.T) {
	ra := &ResolutionAggregate{Res: 8}
	ra.assignTiers()
	assert.Zero(t, ra.TierBreaks)
}

func TestResolutionAggregate_Get(t *testing.T) {
	ra := &ResolutionAggregate{
		Res:   8,
		Cells: []CellAggregate{{Cell: "a", PointCount: 3}},
	}
	ra.Reindex()

	got, ok := ra.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, got.PointCount)

	_, ok = ra.Get("missing")
	assert.False(t, ok)
}
