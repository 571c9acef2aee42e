package analysis

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"apexrun/internal/store"
)

// Pace series tuning
const (
	PaceWindow      = 30 * time.Second
	MinSpeedForPace = 0.5 // m/s; slower samples are treated as stopped
)

// SessionFeatures are the inputs of the session classifier
type SessionFeatures struct {
	DurationMinutes float64
	DistanceKm      float64
	PaceCV          float64
	DominantZone    string // empty when the session has no heart rate
}

// ClassRule maps a predicate over SessionFeatures to a session type
type ClassRule struct {
	Label store.SessionType
	Match func(SessionFeatures) bool
}

func highZone(z string) bool { return z == "Z4" || z == "Z5" }

// ClassRules is evaluated top to bottom; the first match wins.
// Sessions matching nothing are easy.
var ClassRules = []ClassRule{
	{store.SessionLongRun, func(f SessionFeatures) bool { return f.DurationMinutes > 90 || f.DistanceKm > 15 }},
	{store.SessionRace, func(f SessionFeatures) bool { return f.PaceCV > 0.15 && highZone(f.DominantZone) }},
	{store.SessionIntervals, func(f SessionFeatures) bool { return f.PaceCV > 0.20 }},
	{store.SessionFartlek, func(f SessionFeatures) bool { return f.PaceCV > 0.12 }},
	{store.SessionRecovery, func(f SessionFeatures) bool { return f.DominantZone == "Z1" }},
	{store.SessionEasy, func(f SessionFeatures) bool { return f.DominantZone == "Z2" }},
	{store.SessionTempo, func(f SessionFeatures) bool { return f.DominantZone == "Z3" }},
	{store.SessionThreshold, func(f SessionFeatures) bool { return highZone(f.DominantZone) }},
	{store.SessionRecovery, func(f SessionFeatures) bool { return f.DominantZone == "" && f.DurationMinutes < 30 }},
}

// Classify assigns a session type from its features
func Classify(f SessionFeatures) store.SessionType {
	for _, rule := range ClassRules {
		if rule.Match(f) {
			return rule.Label
		}
	}
	return store.SessionEasy
}

// PaceSeries derives an instantaneous pace (min/km) for each sample from the
// distance covered over the trailing PaceWindow. Samples without a full window
// of history, or moving slower than MinSpeedForPace, are left out.
// points must carry cumulative distances.
func PaceSeries(points []store.Trackpoint) []float64 {
	samples := instantPaces(points)
	paces := make([]float64, len(samples))
	for i, s := range samples {
		paces[i] = s.pace
	}
	return paces
}

// pacedSample is a pace tied back to the index of the sample it was derived at
type pacedSample struct {
	index int
	pace  float64
}

func instantPaces(points []store.Trackpoint) []pacedSample {
	cum := distances(points)
	var samples []pacedSample

	left := 0
	for i := 1; i < len(points); i++ {
		for left < i-1 && points[i].Timestamp.Sub(points[left+1].Timestamp) >= PaceWindow {
			left++
		}
		dt := points[i].Timestamp.Sub(points[left].Timestamp).Seconds()
		if dt < PaceWindow.Seconds() {
			continue
		}
		speed := (cum[i] - cum[left]) / dt
		if speed < MinSpeedForPace {
			continue
		}
		samples = append(samples, pacedSample{index: i, pace: (1000 / speed) / 60})
	}

	return samples
}

// PaceCV is the coefficient of variation (sample stddev / mean) of paces.
// Fewer than two values give 0.
func PaceCV(paces []float64) float64 {
	if len(paces) < 2 {
		return 0
	}
	mean := stat.Mean(paces, nil)
	if mean <= 0 {
		return 0
	}
	return stat.StdDev(paces, nil) / mean
}
