package analysis

import (
	"math"
	"sort"
	"time"

	"apexrun/internal/store"
)

// Sex selects the TRIMP weighting constants
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// FallbackIntensityFactor is used for TSS when no heart rate ratio is available
const FallbackIntensityFactor = 0.7

// TRIMP calculates Training Impulse (Banister model) from average and max HR:
//
//	ratio = avgHR / maxHR
//	male:   weight = 0.64 * e^(1.92 * ratio)
//	female: weight = 0.86 * e^(1.67 * ratio)
//	TRIMP  = duration * ratio * weight
//
// Returns 0 when duration, avgHR or maxHR is zero or negative.
func TRIMP(durationMinutes, avgHR, maxHR float64, sex Sex) float64 {
	if durationMinutes <= 0 || avgHR <= 0 || maxHR <= 0 {
		return 0
	}

	ratio := avgHR / maxHR

	var weight float64
	switch sex {
	case SexFemale:
		weight = 0.86 * math.Exp(1.67*ratio)
	default:
		weight = 0.64 * math.Exp(1.92*ratio)
	}

	return durationMinutes * ratio * weight
}

// TSS estimates Training Stress Score: hours * IF² * 100
func TSS(durationMinutes, intensityFactor float64) float64 {
	return (durationMinutes / 60) * intensityFactor * intensityFactor * 100
}

// SessionLoad builds the load record for one session against maxHR
func SessionLoad(m store.Metrics, maxHR float64, sex Sex) store.TrainingLoad {
	var avgHR float64
	if m.AvgHeartRate != nil {
		avgHR = *m.AvgHeartRate
	}

	intensity := FallbackIntensityFactor
	if avgHR > 0 && maxHR > 0 {
		intensity = avgHR / maxHR
	}

	return store.TrainingLoad{
		TRIMP:           TRIMP(m.DurationMinutes, avgHR, maxHR, sex),
		TSS:             TSS(m.DurationMinutes, intensity),
		Duration:        m.DurationMinutes,
		Distance:        m.DistanceKm,
		IntensityFactor: intensity,
	}
}

// GlobalMaxHR is the max HR shared by every session's TRIMP: the largest
// per-session estimate, 185 when no session has one, and 185 again when the
// result is implausibly low (< 170).
func GlobalMaxHR(sessions []store.Session) float64 {
	var global float64
	for _, s := range sessions {
		if s.MaxHREstimated != nil && *s.MaxHREstimated > global {
			global = *s.MaxHREstimated
		}
	}
	if global < MinPlausibleMaxHR {
		return FallbackMaxHR
	}
	return global
}

// RecomputeAllLoads returns a copy of sessions with every training load
// recomputed against globalMaxHR. The input is not modified.
func RecomputeAllLoads(sessions []store.Session, globalMaxHR float64, sex Sex) []store.Session {
	out := make([]store.Session, len(sessions))
	for i, s := range sessions {
		var m store.Metrics
		if s.Metrics != nil {
			m = *s.Metrics
		}
		load := SessionLoad(m, globalMaxHR, sex)
		s.TrainingLoad = &load
		out[i] = s
	}
	return out
}

// RiskBand labels an acute:chronic ratio
type RiskBand string

const (
	RiskUndertraining RiskBand = "undertraining"
	RiskOptimal       RiskBand = "optimal"
	RiskCaution       RiskBand = "caution"
	RiskHigh          RiskBand = "high_risk"
)

// RiskRule maps a predicate over the ratio to a band
type RiskRule struct {
	Band  RiskBand
	Match func(ratio float64) bool
}

// RiskRules is evaluated top to bottom; the first match wins.
//
//	> 1.5        high risk
//	(1.3, 1.5]   caution
//	[0.8, 1.3]   optimal
//	< 0.8        undertraining
var RiskRules = []RiskRule{
	{RiskHigh, func(r float64) bool { return r > 1.5 }},
	{RiskCaution, func(r float64) bool { return r > 1.3 }},
	{RiskOptimal, func(r float64) bool { return r >= 0.8 }},
	{RiskUndertraining, func(float64) bool { return true }},
}

// ClassifyRisk returns the band for an acute:chronic ratio
func ClassifyRisk(ratio float64) RiskBand {
	for _, rule := range RiskRules {
		if rule.Match(ratio) {
			return rule.Band
		}
	}
	return RiskUndertraining
}

// Rolling window lengths in whole days
const (
	AcuteWindowDays   = 7
	ChronicWindowDays = 28
)

// LoadStatus is the rolling acute/chronic picture at a point in time
type LoadStatus struct {
	AcuteLoad        float64  `json:"acute_load"`
	ChronicLoad      float64  `json:"chronic_load"`
	ChronicWeeklyAvg float64  `json:"chronic_weekly_avg"`
	Ratio            float64  `json:"ratio"`
	Risk             RiskBand `json:"risk"`
	AcuteSessions    int      `json:"acute_sessions"`
	ChronicSessions  int      `json:"chronic_sessions"`
}

// AcuteChronic sums TRIMP over the last 7 and 28 days as of now.
// Session age is counted in whole elapsed days; sessions after now are ignored.
func AcuteChronic(sessions []store.Session, now time.Time) LoadStatus {
	var status LoadStatus

	for _, s := range sessions {
		elapsed := now.Sub(s.StartTime)
		if elapsed < 0 {
			continue
		}
		days := int(elapsed / (24 * time.Hour))

		var trimp float64
		if s.TrainingLoad != nil {
			trimp = s.TrainingLoad.TRIMP
		}
		if days <= AcuteWindowDays {
			status.AcuteLoad += trimp
			status.AcuteSessions++
		}
		if days <= ChronicWindowDays {
			status.ChronicLoad += trimp
			status.ChronicSessions++
		}
	}

	status.ChronicWeeklyAvg = status.ChronicLoad / 4
	if status.ChronicWeeklyAvg > 0 {
		status.Ratio = status.AcuteLoad / status.ChronicWeeklyAvg
	}
	status.Risk = ClassifyRisk(status.Ratio)

	return status
}

// DailyLoad represents training load for a single day
type DailyLoad struct {
	Date  time.Time
	TRIMP float64
}

// DailyLoads sums session TRIMP per UTC calendar day
func DailyLoads(sessions []store.Session) []DailyLoad {
	byDay := make(map[time.Time]float64)
	for _, s := range sessions {
		if s.TrainingLoad == nil {
			continue
		}
		byDay[utcDay(s.StartTime)] += s.TrainingLoad.TRIMP
	}

	loads := make([]DailyLoad, 0, len(byDay))
	for day, trimp := range byDay {
		loads = append(loads, DailyLoad{Date: day, TRIMP: trimp})
	}
	sort.Slice(loads, func(i, j int) bool {
		return loads[i].Date.Before(loads[j].Date)
	})
	return loads
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FitnessMetrics represents CTL/ATL/TSB for a day
type FitnessMetrics struct {
	Date time.Time `json:"date"`
	CTL  float64   `json:"ctl"` // Chronic Training Load (42-day EMA) - "Fitness"
	ATL  float64   `json:"atl"` // Acute Training Load (7-day EMA) - "Fatigue"
	TSB  float64   `json:"tsb"` // Training Stress Balance (CTL - ATL) - "Form"
}

// CalculateFitnessTrend computes CTL/ATL/TSB from daily loads, filling
// missing days up to end with zero load
func CalculateFitnessTrend(dailyLoads []DailyLoad, end time.Time) []FitnessMetrics {
	if len(dailyLoads) == 0 {
		return nil
	}

	ctlDecay := 2.0 / (42.0 + 1.0)
	atlDecay := 2.0 / (7.0 + 1.0)

	loadMap := make(map[time.Time]float64)
	start := utcDay(dailyLoads[0].Date)
	for _, dl := range dailyLoads {
		day := utcDay(dl.Date)
		loadMap[day] += dl.TRIMP
		if day.Before(start) {
			start = day
		}
	}

	endDay := utcDay(end)
	var metrics []FitnessMetrics
	var ctl, atl float64
	for d := start; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		trimp := loadMap[d]

		ctl = ctl + ctlDecay*(trimp-ctl)
		atl = atl + atlDecay*(trimp-atl)

		metrics = append(metrics, FitnessMetrics{
			Date: d,
			CTL:  ctl,
			ATL:  atl,
			TSB:  ctl - atl,
		})
	}

	return metrics
}

// FormDescription returns a human-readable description of TSB
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}
