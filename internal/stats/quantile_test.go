package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
}

func TestQuantile_Single(t *testing.T) {
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.5))
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.95))
}

func TestQuantile_Interpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	tests := []struct {
		name string
		q    float64
		want float64
	}{
		{"min", 0.0, 1.0},
		{"median", 0.5, 2.5},
		{"max", 1.0, 4.0},
		{"q25", 0.25, 1.75},
		{"clamped below", -0.5, 1.0},
		{"clamped above", 1.5, 4.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Quantile(values, tc.q), 1e-9)
		})
	}
}

func TestQuantiles_SingleSort(t *testing.T) {
	values := []float64{5, 1, 3, 2, 4}
	got := Quantiles(values, 0.0, 0.5, 1.0)
	assert.Equal(t, []float64{1, 3, 5}, got)
}

func TestQuantiles_Empty(t *testing.T) {
	got := Quantiles(nil, 0.5, 0.95)
	assert.Equal(t, []float64{0, 0}, got)
}

func TestRankFraction(t *testing.T) {
	values := []float64{10, 20, 30, 40}

	assert.Equal(t, 0.25, RankFraction(values, 10))
	assert.Equal(t, 0.5, RankFraction(values, 25))
	assert.Equal(t, 1.0, RankFraction(values, 40))
	assert.Equal(t, 0.0, RankFraction(values, 5))
	assert.Equal(t, 0.0, RankFraction(nil, 5))
}

func TestRankFraction_Ties(t *testing.T) {
	values := []float64{1, 2, 2, 3}
	// Both ties see the same fraction: 3 of 4 values are <= 2.
	assert.Equal(t, 0.75, RankFraction(values, 2))
}

func TestMax(t *testing.T) {
	assert.Equal(t, 0.0, Max(nil))
	assert.Equal(t, 9.0, Max([]float64{3, 9, 1}))
}
