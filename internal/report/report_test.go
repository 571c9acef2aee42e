package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"apexrun/internal/analysis"
	"apexrun/internal/service"
	"apexrun/internal/store"
)

func ptr(v float64) *float64 { return &v }

func TestSessions(t *testing.T) {
	assert.Contains(t, Sessions(nil), "No runs yet")

	out := Sessions([]store.SummaryRow{{
		Filename:        "run.tcx",
		StartTime:       time.Date(2024, 6, 14, 7, 30, 0, 0, time.UTC),
		SessionType:     store.SessionTempo,
		DistanceKm:      10,
		DurationMinutes: 45,
		PaceMinPerKm:    4.5,
		GAPPaceMinPerKm: 4.4,
		AvgHeartRate:    ptr(162),
		TRIMP:           88,
	}})
	assert.Contains(t, out, "Sessions (1)")
	assert.Contains(t, out, "2024-06-14 07:30")
	assert.Contains(t, out, "45:00")
	assert.Contains(t, out, "4:30")
	assert.Contains(t, out, "162")
	assert.Contains(t, out, "88.0")
}

func TestRecords(t *testing.T) {
	out := Records([]analysis.PersonalRecord{{
		Distance:        "5K",
		Filename:        "race.fit",
		Date:            time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		PaceMinPerKm:    4,
		DurationMinutes: 20,
		Source:          analysis.SourceBestEffort,
	}})
	assert.Contains(t, out, "5K")
	assert.Contains(t, out, "20:00")
	assert.Contains(t, out, "race.fit")
}

func TestLoad(t *testing.T) {
	out := Load(analysis.LoadStatus{AcuteLoad: 300, ChronicLoad: 1000, ChronicWeeklyAvg: 250, Ratio: 1.2, Risk: analysis.RiskOptimal, AcuteSessions: 3})
	assert.Contains(t, out, "1.20")
	assert.Contains(t, out, "optimal")
	assert.Contains(t, out, "3 runs")
}

func TestZones(t *testing.T) {
	assert.Contains(t, Zones(service.ZoneAggregate{}), "No runs yet")

	out := Zones(service.ZoneAggregate{
		Average:        map[string]float64{"Z2": 75, "Z1": 25, "Z3": 0, "Z4": 0, "Z5": 0},
		SessionsWithHR: 2,
		Sessions:       3,
	})
	assert.Contains(t, out, "2 of 3 runs")
	assert.Less(t, strings.Index(out, "Z1"), strings.Index(out, "Z2"))
	assert.Contains(t, out, "75.0%")
}

func TestPeriods(t *testing.T) {
	cur := service.PeriodStats{PeriodLabel: "Jun 10", RunCount: 2, DistanceKm: 9, DurationMinutes: 45, AvgHR: 150}
	prev := service.PeriodStats{PeriodLabel: "Jun 03", RunCount: 1, DistanceKm: 5, DurationMinutes: 30, AvgHR: 155}
	out := Periods([]service.PeriodStats{prev, cur}, []service.ComparisonStats{{
		Label: "This Week vs Last Week", Current: cur, Previous: prev, DeltaRuns: 1, DeltaKm: 4, DeltaHR: -5,
	}})

	assert.Contains(t, out, "Jun 03")
	assert.Contains(t, out, "5:00")
	assert.Contains(t, out, "This Week vs Last Week")
	assert.Contains(t, out, "+4.0 ↑")
	assert.Contains(t, out, "-5.0 ↑", "lower heart rate is an improvement")
}

func TestRenderRow(t *testing.T) {
	assert.Contains(t, renderRow("Runs", "1", "1", 0, "%+.0f", false), "0 →")
	assert.Contains(t, renderRow("Runs", "2", "1", 1, "%+.0f", false), "+1 ↑")
}

func TestPredictionsAndFitness(t *testing.T) {
	out := Predictions(&service.PredictionsData{
		Predictions: []analysis.RacePrediction{{Target: "10K", PredictedMinutes: 41.5, PaceMinPerKm: 4.15, Confidence: "high"}},
		Fitness:     &analysis.FitnessScore{VDOT: 50.2, Level: "Advanced", SourceDistance: "5K"},
	})
	assert.Contains(t, out, "50.2")
	assert.Contains(t, out, "41:30")
	assert.Contains(t, out, "high")

	assert.Contains(t, Fitness(&service.FitnessData{}), "No runs yet")
	out = Fitness(&service.FitnessData{
		Current:     &analysis.FitnessMetrics{Date: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), CTL: 40, ATL: 50, TSB: -10},
		Description: "Training hard",
	})
	assert.Contains(t, out, "-10.0")
	assert.Contains(t, out, "Training hard")
}

func TestImportAndSync(t *testing.T) {
	out := Import(&service.ImportResult{Parsed: 3, Added: 2, Skipped: 1, Errors: []error{errors.New("bad.gpx: malformed")}})
	assert.Contains(t, out, "Imported 2 of 3")
	assert.Contains(t, out, "bad.gpx: malformed")

	out = Sync(&service.SyncResult{ActivitiesFetched: 5, RunsFound: 4, StreamsFetched: 4, Added: 4})
	assert.Contains(t, out, "Synced 4 new runs")
}

func TestProgress(t *testing.T) {
	out := Progress(1, 4, "a.fit")
	assert.Equal(t, 5, strings.Count(out, "█"))
	assert.Equal(t, 15, strings.Count(out, "░"))
	assert.Contains(t, out, "1/4 a.fit")

	assert.Equal(t, 20, strings.Count(Progress(0, 0, ""), "░"))
}
