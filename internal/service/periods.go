package service

import (
	"context"
	"fmt"
	"time"

	"apexrun/internal/store"
)

// Period granularities accepted by Periods
const (
	Weekly  = "weekly"
	Monthly = "monthly"
)

// Rolling30Days is the window of the rolling comparison
const Rolling30Days = 30

// PeriodStats holds aggregated stats for a time period
type PeriodStats struct {
	PeriodStart     time.Time `json:"period_start"`
	PeriodLabel     string    `json:"period_label"`
	RunCount        int       `json:"run_count"`
	DistanceKm      float64   `json:"distance_km"`
	DurationMinutes float64   `json:"duration_minutes"`
	AvgHR           float64   `json:"avg_hr"`
	AvgCadence      float64   `json:"avg_cadence"`
	AvgEI           float64   `json:"avg_efficiency_index"`
	TRIMP           float64   `json:"trimp"`
}

// PaceMinPerKm is the distance-weighted pace of the period, 0 without distance
func (p PeriodStats) PaceMinPerKm() float64 {
	if p.DistanceKm == 0 {
		return 0
	}
	return p.DurationMinutes / p.DistanceKm
}

// ComparisonStats holds two periods and their deltas
type ComparisonStats struct {
	Label      string      `json:"label"`
	Current    PeriodStats `json:"current"`
	Previous   PeriodStats `json:"previous"`
	DeltaRuns  int         `json:"delta_runs"`
	DeltaKm    float64     `json:"delta_km"`
	DeltaHR    float64     `json:"delta_hr"`
	DeltaSPM   float64     `json:"delta_spm"`
	DeltaEI    float64     `json:"delta_ei"`
	DeltaTRIMP float64     `json:"delta_trimp"`
}

// Periods returns the last numPeriods weeks or months ending with the
// current one, oldest first
func (h *History) Periods(ctx context.Context, periodType string, numPeriods int) ([]PeriodStats, error) {
	if periodType != Weekly && periodType != Monthly {
		return nil, fmt.Errorf("unknown period type %q", periodType)
	}
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	return periodStats(sessions, periodType, numPeriods, h.now()), nil
}

// Comparisons returns this period vs the previous one plus the rolling
// 30 days vs the prior 30
func (h *History) Comparisons(ctx context.Context, periodType string) ([]ComparisonStats, error) {
	sessions, err := h.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	now := h.now()

	var comparisons []ComparisonStats
	switch periodType {
	case Weekly:
		thisMonday := getMonday(now)
		lastMonday := thisMonday.AddDate(0, 0, -7)
		comparisons = append(comparisons, buildComparison("This Week vs Last Week",
			statsForRange(sessions, thisMonday, now, "This Week"),
			statsForRange(sessions, lastMonday, thisMonday, "Last Week"),
		))
	case Monthly:
		thisFirst := firstOfMonth(now)
		lastFirst := thisFirst.AddDate(0, -1, 0)
		thisMonth := statsForRange(sessions, thisFirst, now, thisFirst.Format("Jan 2006"))
		comparisons = append(comparisons, buildComparison("This Month vs Last Month",
			thisMonth,
			statsForRange(sessions, lastFirst, thisFirst, lastFirst.Format("Jan 2006")),
		))

		lastYearFirst := thisFirst.AddDate(-1, 0, 0)
		comparisons = append(comparisons, buildComparison("vs Same Month Last Year",
			thisMonth,
			statsForRange(sessions, lastYearFirst, lastYearFirst.AddDate(0, 1, 0), lastYearFirst.Format("Jan 2006")),
		))
	default:
		return nil, fmt.Errorf("unknown period type %q", periodType)
	}

	thirtyAgo := now.AddDate(0, 0, -Rolling30Days)
	sixtyAgo := now.AddDate(0, 0, -2*Rolling30Days)
	comparisons = append(comparisons, buildComparison("Rolling 30 Days vs Prior 30",
		statsForRange(sessions, thirtyAgo, now, "Last 30 Days"),
		statsForRange(sessions, sixtyAgo, thirtyAgo, "Prior 30 Days"),
	))

	return comparisons, nil
}

func periodStats(sessions []store.Session, periodType string, numPeriods int, now time.Time) []PeriodStats {
	if numPeriods <= 0 {
		return nil
	}

	stats := make([]PeriodStats, numPeriods)
	currentMonday := getMonday(now)
	currentFirst := firstOfMonth(now)
	for i := range stats {
		back := numPeriods - 1 - i
		if periodType == Weekly {
			start := currentMonday.AddDate(0, 0, -7*back)
			stats[i] = PeriodStats{PeriodStart: start, PeriodLabel: start.Format("Jan 02")}
		} else {
			start := currentFirst.AddDate(0, -back, 0)
			stats[i] = PeriodStats{PeriodStart: start, PeriodLabel: start.Format("Jan 2006")}
		}
	}

	buckets := make([][]store.Session, numPeriods)
	for _, s := range sessions {
		if idx := findPeriodIndex(s.StartTime, stats, periodType); idx >= 0 {
			buckets[idx] = append(buckets[idx], s)
		}
	}
	for i := range stats {
		accumulate(&stats[i], buckets[i])
	}
	return stats
}

// findPeriodIndex returns the index of the period that contains date
func findPeriodIndex(date time.Time, stats []PeriodStats, periodType string) int {
	for i := range stats {
		var periodEnd time.Time
		if periodType == Weekly {
			periodEnd = stats[i].PeriodStart.AddDate(0, 0, 7)
		} else {
			periodEnd = stats[i].PeriodStart.AddDate(0, 1, 0)
		}
		if !date.Before(stats[i].PeriodStart) && date.Before(periodEnd) {
			return i
		}
	}
	return -1
}

// statsForRange aggregates sessions starting in [start, end)
func statsForRange(sessions []store.Session, start, end time.Time, label string) PeriodStats {
	stats := PeriodStats{PeriodStart: start, PeriodLabel: label}
	var in []store.Session
	for _, s := range sessions {
		if !s.StartTime.Before(start) && s.StartTime.Before(end) {
			in = append(in, s)
		}
	}
	accumulate(&stats, in)
	return stats
}

// accumulate adds sessions into stats. Averages are over the sessions
// that carry the value.
func accumulate(stats *PeriodStats, sessions []store.Session) {
	var hr, cad, ei mean
	for _, s := range sessions {
		stats.RunCount++
		if s.TrainingLoad != nil {
			stats.TRIMP += s.TrainingLoad.TRIMP
		}
		m := s.Metrics
		if m == nil {
			continue
		}
		stats.DistanceKm += m.DistanceKm
		stats.DurationMinutes += m.DurationMinutes
		hr.add(m.AvgHeartRate)
		cad.add(m.AvgCadence)
		ei.add(m.EfficiencyIndex)
	}
	stats.AvgHR = hr.value()
	stats.AvgCadence = cad.value()
	stats.AvgEI = ei.value()
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// buildComparison creates a ComparisonStats from two periods
func buildComparison(label string, current, previous PeriodStats) ComparisonStats {
	return ComparisonStats{
		Label:      label,
		Current:    current,
		Previous:   previous,
		DeltaRuns:  current.RunCount - previous.RunCount,
		DeltaKm:    current.DistanceKm - previous.DistanceKm,
		DeltaHR:    current.AvgHR - previous.AvgHR,
		DeltaSPM:   current.AvgCadence - previous.AvgCadence,
		DeltaEI:    current.AvgEI - previous.AvgEI,
		DeltaTRIMP: current.TRIMP - previous.TRIMP,
	}
}

// getMonday returns the Monday of the week containing t, at midnight
func getMonday(t time.Time) time.Time {
	daysFromMonday := (int(t.Weekday()) + 6) % 7 // Monday = 0
	monday := t.AddDate(0, 0, -daysFromMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, monday.Location())
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
