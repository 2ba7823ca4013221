package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolygonBoundary_Contains(t *testing.T) {
	// Unit square around lower Manhattan, (lng, lat) order.
	b := NewPolygonBoundary([][2]float64{
		{-74.05, 40.68}, {-73.95, 40.68}, {-73.95, 40.75}, {-74.05, 40.75}, {-74.05, 40.68},
	})

	tests := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"inside", 40.71, -74.00, true},
		{"north of box", 40.80, -74.00, false},
		{"west of box", 40.71, -74.20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Contains(tt.lat, tt.lng))
		})
	}
}
