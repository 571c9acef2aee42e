package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"apexrun/internal/store"
)

func TestEstimateMaxHR(t *testing.T) {
	tests := []struct {
		name    string
		peak    *float64
		athlete Athlete
		want    float64
	}{
		{"override wins", floatPtr(195), Athlete{MaxHROverride: 188, Age: 30}, 188},
		{"observed peak plus buffer", floatPtr(178), Athlete{Age: 30}, 183},
		{"peak at floor is noise", floatPtr(150), Athlete{Age: 40}, 180},
		{"age formula", nil, Athlete{Age: 35}, 185},
		{"no information", nil, Athlete{}, FallbackMaxHR},
		{"low peak no age", floatPtr(140), Athlete{}, FallbackMaxHR},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateMaxHR(tt.peak, tt.athlete))
		})
	}
}

func TestZoneFor(t *testing.T) {
	tests := []struct {
		hr   float64
		want string
	}{
		{50, "Z1"},  // below every band
		{100, "Z1"}, // 50%
		{119, "Z1"},
		{120, "Z2"}, // 60% belongs to the upper band
		{140, "Z3"},
		{160, "Z4"},
		{179, "Z4"},
		{180, "Z5"},
		{220, "Z5"}, // above max
	}

	for _, tt := range tests {
		if got := ZoneFor(tt.hr, 200); got != tt.want {
			t.Errorf("ZoneFor(%v, 200) = %s, want %s", tt.hr, got, tt.want)
		}
	}
}

func TestZoneDistribution(t *testing.T) {
	withHR := func(hrs ...int) []store.Trackpoint {
		points := make([]store.Trackpoint, len(hrs))
		for i, hr := range hrs {
			points[i] = store.Trackpoint{Timestamp: testStart, HeartRateBPM: intPtr(hr)}
		}
		return points
	}

	t.Run("all zones present and percentages sum to 100", func(t *testing.T) {
		points := withHR(110, 110, 130, 150)
		points = append(points, store.Trackpoint{Timestamp: testStart}) // no HR

		got := ZoneDistribution(points, 200)

		want := map[string]store.ZoneShare{
			"Z1": {Percentage: 50, Count: 2},
			"Z2": {Percentage: 25, Count: 1},
			"Z3": {Percentage: 25, Count: 1},
			"Z4": {Percentage: 0, Count: 0},
			"Z5": {Percentage: 0, Count: 0},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ZoneDistribution() mismatch (-want +got):\n%s", diff)
		}

		var sum float64
		for _, share := range got {
			sum += share.Percentage
		}
		assert.InDelta(t, 100, sum, 1e-9)
	})

	t.Run("no heart rate is empty but not nil", func(t *testing.T) {
		got := ZoneDistribution([]store.Trackpoint{{Timestamp: testStart}}, 190)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("zero max heart rate", func(t *testing.T) {
		got := ZoneDistribution(withHR(150), 0)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestDominantZone(t *testing.T) {
	t.Run("largest share", func(t *testing.T) {
		zone, ok := DominantZone(map[string]store.ZoneShare{
			"Z1": {Percentage: 10}, "Z2": {Percentage: 20}, "Z3": {Percentage: 60},
			"Z4": {Percentage: 10}, "Z5": {Percentage: 0},
		})
		assert.True(t, ok)
		assert.Equal(t, "Z3", zone)
	})

	t.Run("ties go to the lower zone", func(t *testing.T) {
		zone, ok := DominantZone(map[string]store.ZoneShare{
			"Z1": {Percentage: 0}, "Z2": {Percentage: 40}, "Z3": {Percentage: 20},
			"Z4": {Percentage: 40}, "Z5": {Percentage: 0},
		})
		assert.True(t, ok)
		assert.Equal(t, "Z2", zone)
	})

	t.Run("empty", func(t *testing.T) {
		_, ok := DominantZone(map[string]store.ZoneShare{})
		assert.False(t, ok)
	})
}
