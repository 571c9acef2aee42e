package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexrun/internal/store"
)

func TestProcessSession(t *testing.T) {
	t.Run("with heart rate", func(t *testing.T) {
		s := store.Session{
			Filename:    "easy.fit",
			StartTime:   testStart,
			Trackpoints: makeRun(2401, time.Second, 2.5, intPtr(130)), // 6 km in 40 min
		}

		got := ProcessSession(s, Athlete{Sex: SexMale, Age: 40})

		require.NotNil(t, got.Metrics)
		assert.InDelta(t, 6000, got.Metrics.DistanceMeters, 1e-6)
		// peak 130 is below the plausibility floor, so the age formula applies
		require.NotNil(t, got.MaxHREstimated)
		assert.Equal(t, 180.0, *got.MaxHREstimated)
		// 130/180 = 72%
		assert.Equal(t, 100.0, got.HRZones["Z3"].Percentage)
		assert.Len(t, got.HRZones, 5)
		assert.Equal(t, store.SessionTempo, got.SessionType)
		assert.Nil(t, got.TrainingLoad)

		require.NotNil(t, got.Trackpoints[len(got.Trackpoints)-1].DistanceM)
		assert.Nil(t, s.Trackpoints[0].DistanceM, "input trackpoints must not be modified")
		assert.False(t, NeedsProcessing(got))
	})

	t.Run("without heart rate", func(t *testing.T) {
		s := store.Session{
			Filename:    "short.gpx",
			StartTime:   testStart,
			Trackpoints: makeRun(1201, time.Second, 3, nil), // 20 min
		}

		got := ProcessSession(s, Athlete{})

		assert.Nil(t, got.MaxHREstimated)
		assert.NotNil(t, got.HRZones)
		assert.Empty(t, got.HRZones)
		assert.Equal(t, store.SessionRecovery, got.SessionType)
		assert.False(t, NeedsProcessing(got))
	})

	t.Run("long run", func(t *testing.T) {
		s := store.Session{
			Filename:    "long.fit",
			StartTime:   testStart,
			Trackpoints: makeRun(1001, 6*time.Second, 20, intPtr(140)), // 20 km
		}

		got := ProcessSession(s, Athlete{})

		assert.Equal(t, store.SessionLongRun, got.SessionType)
		assert.Contains(t, got.Metrics.BestEfforts, "15K")
		assert.NotContains(t, got.Metrics.BestEfforts, "21K")
	})
}

func TestNeedsProcessing(t *testing.T) {
	complete := store.Session{
		Metrics:     &store.Metrics{BestEfforts: map[string]store.BestEffort{}},
		SessionType: store.SessionEasy,
		HRZones:     map[string]store.ZoneShare{},
	}
	assert.False(t, NeedsProcessing(complete))

	tests := []struct {
		name   string
		mutate func(s *store.Session)
	}{
		{"no metrics", func(s *store.Session) { s.Metrics = nil }},
		{"no best efforts", func(s *store.Session) { s.Metrics = &store.Metrics{} }},
		{"no session type", func(s *store.Session) { s.SessionType = "" }},
		{"no zones", func(s *store.Session) { s.HRZones = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := complete
			tt.mutate(&s)
			assert.True(t, NeedsProcessing(s))
		})
	}
}
