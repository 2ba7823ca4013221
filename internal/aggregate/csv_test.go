package aggregate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridcast/internal/hexgrid"
)

// bucketIndexer splits points into two synthetic cells so trace
// aggregation can be tested without real hexagon math.
type bucketIndexer struct{}

func (bucketIndexer) CellOf(lat, _ float64, _ int) (string, error) {
	if lat >= 40.75 {
		return "north", nil
	}
	return "south", nil
}

func (bucketIndexer) Ring(string) ([]string, error)            { return nil, nil }
func (bucketIndexer) Center(string) (hexgrid.Vertex, error)    { return hexgrid.Vertex{}, nil }
func (bucketIndexer) Boundary(string) ([]hexgrid.Vertex, error) { return nil, nil }
func (bucketIndexer) Valid(string) bool                        { return true }

func TestReadTraceCSV(t *testing.T) {
	input := `randomized_id,lat,lng
trip-1,40.70,-74.00
trip-2,40.80,-73.95
`
	points, err := ReadTraceCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "trip-1", points[0].TripID)
	assert.InDelta(t, 40.70, points[0].Lat, 1e-9)
	assert.InDelta(t, -73.95, points[1].Lng, 1e-9)
}

func TestReadTraceCSV_ColumnOrderIrrelevant(t *testing.T) {
	input := `lng,randomized_id,lat
-74.00,trip-1,40.70
`
	points, err := ReadTraceCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "trip-1", points[0].TripID)
	assert.InDelta(t, -74.00, points[0].Lng, 1e-9)
}

func TestReadTraceCSV_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "missing column",
			input: "randomized_id,lat\ntrip-1,40.7\n",
			want:  `missing column "lng"`,
		},
		{
			name:  "malformed lat",
			input: "randomized_id,lat,lng\ntrip-1,not-a-number,-74.0\n",
			want:  "bad lat on line 2",
		},
		{
			name:  "latitude out of range",
			input: "randomized_id,lat,lng\ntrip-1,95.0,-74.0\n",
			want:  "out of range on line 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTraceCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAggregateTraces(t *testing.T) {
	input := `randomized_id,lat,lng
trip-1,40.70,-74.00
trip-1,40.71,-74.01
trip-2,40.72,-74.02
trip-3,40.80,-73.95
`
	got, err := AggregateTraces(context.Background(), strings.NewReader(input), bucketIndexer{}, []int{8, 9}, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byCell := map[string]CellRecord{}
	for _, rec := range got[8] {
		byCell[rec.Cell] = rec
	}
	require.Len(t, byCell, 2)
	assert.Equal(t, 3, byCell["south"].PointCount)
	assert.Equal(t, 2, byCell["south"].UniqueTrips)
	assert.Equal(t, 1, byCell["north"].PointCount)
	assert.Equal(t, 1, byCell["north"].UniqueTrips)

	// Both resolutions came off the same pass.
	assert.Len(t, got[9], 2)
}

func TestAggregateTraces_BoundaryFilter(t *testing.T) {
	input := `randomized_id,lat,lng
trip-1,40.70,-74.00
trip-2,40.80,-73.95
`
	filter := NewPolygonBoundary([][2]float64{
		{-74.10, 40.60}, {-73.98, 40.60}, {-73.98, 40.75}, {-74.10, 40.75}, {-74.10, 40.60},
	})
	got, err := AggregateTraces(context.Background(), strings.NewReader(input), bucketIndexer{}, []int{8}, filter)
	require.NoError(t, err)

	require.Len(t, got[8], 1)
	assert.Equal(t, "south", got[8][0].Cell)
	assert.Equal(t, 1, got[8][0].PointCount)
}
