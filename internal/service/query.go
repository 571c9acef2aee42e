package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"apexrun/internal/analysis"
	"apexrun/internal/store"
)

// SummaryRow flattens one session into the tabular summary
func SummaryRow(s store.Session) store.SummaryRow {
	row := store.SummaryRow{
		Filename:    s.Filename,
		StartTime:   s.StartTime,
		SessionType: s.SessionType,
	}
	if m := s.Metrics; m != nil {
		row.DistanceKm = m.DistanceKm
		row.DurationMinutes = m.DurationMinutes
		row.PaceMinPerKm = m.PaceMinPerKm
		row.ElevationGain = m.ElevationGain
		row.GAPPaceMinPerKm = m.GAPPaceMinPerKm
		row.AvgHeartRate = m.AvgHeartRate
		row.MaxHeartRate = m.MaxHeartRate
		row.AvgCadence = m.AvgCadence
		row.EfficiencyIndex = m.EfficiencyIndex
		row.GAPEfficiencyIndex = m.GAPEfficiencyIndex
	}
	if s.TrainingLoad != nil {
		row.TRIMP = s.TrainingLoad.TRIMP
	}
	return row
}

// SummaryRows rebuilds the tabular summary, one row per session in input order
func SummaryRows(sessions []store.Session) []store.SummaryRow {
	rows := make([]store.SummaryRow, len(sessions))
	for i, s := range sessions {
		rows[i] = SummaryRow(s)
	}
	return rows
}

// Summary returns the tabular summary of the whole history
func (h *History) Summary(ctx context.Context) ([]store.SummaryRow, error) {
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	return SummaryRows(sessions), nil
}

// Records returns the personal record for each standard distance reached
func (h *History) Records(ctx context.Context) ([]analysis.PersonalRecord, error) {
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	return analysis.PersonalRecords(sessions), nil
}

// LoadStatus returns the acute/chronic load picture as of now
func (h *History) LoadStatus(ctx context.Context) (analysis.LoadStatus, error) {
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return analysis.LoadStatus{}, err
	}
	return analysis.AcuteChronic(sessions, h.now()), nil
}

// ZoneAggregate is the heart rate zone picture across the history
type ZoneAggregate struct {
	Totals         map[string]float64 `json:"totals"`  // sum of per-session percentages
	Average        map[string]float64 `json:"average"` // totals divided by the session count
	SessionsWithHR int                `json:"sessions_with_hr"`
	Sessions       int                `json:"sessions"`
}

// AggregateZones sums the per-session zone percentages. Every zone is
// present in the result, zero when no session spent time in it.
func AggregateZones(sessions []store.Session) ZoneAggregate {
	agg := ZoneAggregate{
		Totals:   make(map[string]float64, len(analysis.Zones)),
		Average:  make(map[string]float64, len(analysis.Zones)),
		Sessions: len(sessions),
	}
	for _, z := range analysis.Zones {
		agg.Totals[z.ID] = 0
	}

	for _, s := range sessions {
		if len(s.HRZones) == 0 {
			continue
		}
		agg.SessionsWithHR++
		for id, share := range s.HRZones {
			if _, ok := agg.Totals[id]; ok {
				agg.Totals[id] += share.Percentage
			}
		}
	}

	for id, total := range agg.Totals {
		if agg.Sessions > 0 {
			agg.Average[id] = total / float64(agg.Sessions)
		} else {
			agg.Average[id] = 0
		}
	}
	return agg
}

// Zones returns the zone aggregate of the whole history
func (h *History) Zones(ctx context.Context) (ZoneAggregate, error) {
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return ZoneAggregate{}, err
	}
	return AggregateZones(sessions), nil
}

// SessionDetail is one session with its on-demand analysis
type SessionDetail struct {
	Summary      store.SummaryRow            `json:"summary"`
	BestEfforts  map[string]store.BestEffort `json:"best_efforts"`
	HRZones      map[string]store.ZoneShare  `json:"hr_zones"`
	MaxHR        *float64                    `json:"max_hr_estimated"`
	TrainingLoad *store.TrainingLoad         `json:"training_load"`
	Analysis     analysis.SessionAnalysis    `json:"analysis"`
	Records      []analysis.PersonalRecord   `json:"records"` // records this session holds
	Trackpoints  int                         `json:"trackpoints"`
}

// SessionDetail looks a session up by identity and analyses it.
// Returns store.ErrSessionNotFound for an unknown key.
func (h *History) SessionDetail(ctx context.Context, key store.SessionKey) (*SessionDetail, error) {
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}

	for _, s := range sessions {
		if s.Key() != key {
			continue
		}

		d := &SessionDetail{
			Summary:      SummaryRow(s),
			HRZones:      s.HRZones,
			MaxHR:        s.MaxHREstimated,
			TrainingLoad: s.TrainingLoad,
			Analysis:     analysis.AnalyzeSession(s),
			Trackpoints:  len(s.Trackpoints),
		}
		if s.Metrics != nil {
			d.BestEfforts = s.Metrics.BestEfforts
		}
		for _, r := range analysis.PersonalRecords(sessions) {
			if r.Filename == s.Filename && r.Date.Equal(s.StartTime) {
				d.Records = append(d.Records, r)
			}
		}
		return d, nil
	}

	return nil, store.ErrSessionNotFound
}

// PredictionsData holds race predictions and the VDOT score behind them
type PredictionsData struct {
	Predictions []analysis.RacePrediction `json:"predictions"`
	Fitness     *analysis.FitnessScore    `json:"fitness"`
}

// Predictions projects race times from the personal records.
// Returns ErrNoHistory when there is no record to predict from.
func (h *History) Predictions(ctx context.Context) (*PredictionsData, error) {
	records, err := h.Records(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoHistory
	}
	return &PredictionsData{
		Predictions: analysis.PredictRaces(records, h.now()),
		Fitness:     analysis.VDOTFromRecords(records),
	}, nil
}

// FitnessTrendDays is how much of the CTL/ATL/TSB series Fitness returns
const FitnessTrendDays = 90

// FitnessData is the recent fitness/fatigue/form series
type FitnessData struct {
	Trend       []analysis.FitnessMetrics `json:"trend"`
	Current     *analysis.FitnessMetrics  `json:"current"`
	Description string                    `json:"description"`
}

// Fitness computes the CTL/ATL/TSB series up to today
func (h *History) Fitness(ctx context.Context) (*FitnessData, error) {
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}

	trend := analysis.CalculateFitnessTrend(analysis.DailyLoads(sessions), h.now())
	data := &FitnessData{Trend: trend}
	if len(trend) == 0 {
		return data, nil
	}
	if len(trend) > FitnessTrendDays {
		data.Trend = trend[len(trend)-FitnessTrendDays:]
	}
	current := trend[len(trend)-1]
	data.Current = &current
	data.Description = analysis.FormDescription(current.TSB)
	return data, nil
}

// HistoryStats describes the stored history
type HistoryStats struct {
	TotalSessions int        `json:"total_sessions"`
	SizeBytes     int64      `json:"size_bytes"`
	Size          string     `json:"size"`
	Earliest      *time.Time `json:"earliest,omitempty"`
	Latest        *time.Time `json:"latest,omitempty"`
	LastRun       string     `json:"last_run,omitempty"`
	TotalKm       float64    `json:"total_km"`
}

// Stats reports the storage size, session count and date range
func (h *History) Stats(ctx context.Context) (*HistoryStats, error) {
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	st, err := h.repo.Stats(ctx)
	h.mu.Unlock()
	if err != nil && !errors.Is(err, store.ErrCorruptHistory) {
		return nil, fmt.Errorf("reading storage stats: %w", err)
	}

	stats := &HistoryStats{
		TotalSessions: len(sessions),
		SizeBytes:     st.SizeBytes,
		Size:          humanize.Bytes(uint64(st.SizeBytes)),
	}
	for _, s := range sessions {
		t := s.StartTime
		if stats.Earliest == nil || t.Before(*stats.Earliest) {
			stats.Earliest = &t
		}
		if stats.Latest == nil || t.After(*stats.Latest) {
			stats.Latest = &t
		}
		if s.Metrics != nil {
			stats.TotalKm += s.Metrics.DistanceKm
		}
	}
	if stats.Latest != nil {
		stats.LastRun = humanize.RelTime(*stats.Latest, h.now(), "ago", "from now")
	}
	return stats, nil
}
