package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexrun/internal/store"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		delta                  float64
	}{
		{"same point", 40, -3.7, 40, -3.7, 0, 0},
		{"one degree of latitude", 0, 0, 1, 0, metersPerDegreeLat, 1e-6},
		{"one degree of longitude at equator", 0, 0, 0, 1, metersPerDegreeLat, 1e-6},
		{"antipodal stays finite", 0, 0, 0, 180, math.Pi * EarthRadiusMeters, 1e-3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.want, got, tt.delta)
		})
	}
}

func TestCumulativeDistanceMatchesPairwiseSum(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	points := make([]store.Trackpoint, 200)
	lat, lon := 40.0, -3.7
	for i := range points {
		lat += (rng.Float64() - 0.3) * 0.0002
		lon += (rng.Float64() - 0.5) * 0.0002
		points[i] = store.Trackpoint{Timestamp: testStart, Lat: floatPtr(lat), Lon: floatPtr(lon)}
	}

	cum := CumulativeDistance(points)
	require.Len(t, cum, len(points))

	var sum float64
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, cum[i], cum[i-1], "cumulative distance decreased at %d", i)
		sum += Haversine(*points[i-1].Lat, *points[i-1].Lon, *points[i].Lat, *points[i].Lon)
	}
	assert.InDelta(t, sum, cum[len(cum)-1], 1e-6)
}

func TestCumulativeDistanceGaps(t *testing.T) {
	pt := func(lat, lon *float64) store.Trackpoint {
		return store.Trackpoint{Timestamp: testStart, Lat: lat, Lon: lon}
	}
	a := pt(floatPtr(40), floatPtr(-3.7))
	b := pt(nil, nil)
	c := pt(floatPtr(40.001), floatPtr(-3.7))
	d := pt(floatPtr(40.002), floatPtr(-3.7))
	nan := pt(floatPtr(math.NaN()), floatPtr(-3.7))

	seg := Haversine(40.001, -3.7, 40.002, -3.7)

	tests := []struct {
		name   string
		points []store.Trackpoint
		want   []float64
	}{
		{"empty", nil, []float64{}},
		{"single point", []store.Trackpoint{a}, []float64{0}},
		{"leading gap", []store.Trackpoint{b, c, d}, []float64{0, 0, seg}},
		{"gap in the middle contributes zero", []store.Trackpoint{a, b, c, d}, []float64{0, 0, 0, seg}},
		{"only one valid point", []store.Trackpoint{b, a, b}, []float64{0, 0, 0}},
		{"NaN is missing", []store.Trackpoint{nan, c, d}, []float64{0, 0, seg}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CumulativeDistance(tt.points)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9, "index %d", i)
			}
		})
	}
}

func TestElevationGain(t *testing.T) {
	alts := func(values ...*float64) []store.Trackpoint {
		points := make([]store.Trackpoint, len(values))
		for i, v := range values {
			points[i] = store.Trackpoint{Timestamp: testStart, AltitudeM: v}
		}
		return points
	}

	tests := []struct {
		name   string
		points []store.Trackpoint
		want   float64
	}{
		{"no altitude", alts(nil, nil, nil), 0},
		{"flat", alts(floatPtr(100), floatPtr(100)), 0},
		{"downhill only", alts(floatPtr(110), floatPtr(100), floatPtr(90)), 0},
		{"up and down", alts(floatPtr(100), floatPtr(105), floatPtr(103), floatPtr(108)), 10},
		{"missing sample skips its deltas", alts(floatPtr(100), floatPtr(105), nil, floatPtr(120), floatPtr(122)), 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ElevationGain(tt.points)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFillDistances(t *testing.T) {
	t.Run("device distance clamped to non-decreasing", func(t *testing.T) {
		points := []store.Trackpoint{
			{Timestamp: testStart, DistanceM: floatPtr(0)},
			{Timestamp: testStart, DistanceM: floatPtr(10)},
			{Timestamp: testStart, DistanceM: floatPtr(8)},
			{Timestamp: testStart, DistanceM: floatPtr(20)},
		}
		got := distances(FillDistances(points))
		assert.Equal(t, []float64{0, 10, 10, 20}, got)
		assert.Equal(t, 8.0, *points[2].DistanceM, "input must not be modified")
	})

	t.Run("partial device distance with positions is recomputed", func(t *testing.T) {
		points := makeRun(3, 0, 100, nil)
		points[1].DistanceM = floatPtr(999)
		got := distances(FillDistances(points))
		assert.InDelta(t, 100, got[1], 1e-6)
		assert.InDelta(t, 200, got[2], 1e-6)
	})

	t.Run("no positions carries device values forward", func(t *testing.T) {
		points := []store.Trackpoint{
			{Timestamp: testStart},
			{Timestamp: testStart, DistanceM: floatPtr(5)},
			{Timestamp: testStart},
			{Timestamp: testStart, DistanceM: floatPtr(12)},
		}
		assert.Equal(t, []float64{0, 5, 5, 12}, distances(FillDistances(points)))
	})

	t.Run("nothing at all", func(t *testing.T) {
		points := []store.Trackpoint{{Timestamp: testStart}, {Timestamp: testStart}}
		assert.Equal(t, []float64{0, 0}, distances(FillDistances(points)))
	})
}
