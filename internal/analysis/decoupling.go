package analysis

import (
	"gonum.org/v1/gonum/stat"

	"apexrun/internal/store"
)

// MinHalfSplitSamples is the fewest samples needed to compare halves of a run
const MinHalfSplitSamples = 20

// CardiacDrift compares mean HR between the first and second half of the
// heart rate samples. Positive drift means HR rose over the run.
type CardiacDrift struct {
	FirstHalfHR  float64 `json:"first_half_hr"`
	SecondHalfHR float64 `json:"second_half_hr"`
	DriftPct     float64 `json:"drift_pct"`
	Severity     string  `json:"severity"`
}

// AnalyzeCardiacDrift returns nil when the session has too few HR samples
func AnalyzeCardiacDrift(points []store.Trackpoint) *CardiacDrift {
	var hrs []float64
	for _, p := range points {
		if hr, ok := heartRate(p); ok {
			hrs = append(hrs, hr)
		}
	}
	if len(hrs) < MinHalfSplitSamples {
		return nil
	}

	mid := len(hrs) / 2
	first := mean(hrs[:mid])
	second := mean(hrs[mid:])
	if first == 0 {
		return nil
	}

	drift := (second - first) / first * 100
	return &CardiacDrift{
		FirstHalfHR:  first,
		SecondHalfHR: second,
		DriftPct:     drift,
		Severity:     driftSeverity(drift),
	}
}

func driftSeverity(pct float64) string {
	switch {
	case pct < 3:
		return "excellent"
	case pct < 5:
		return "good"
	case pct < 8:
		return "moderate"
	default:
		return "high"
	}
}

// AerobicDecoupling compares the HR:pace ratio of the two halves of a run.
// Positive decoupling means the second half cost more heartbeats per unit pace.
// < 5% on long runs indicates a good aerobic base.
type AerobicDecoupling struct {
	FirstHalfRatio  float64 `json:"first_half_ratio"`
	SecondHalfRatio float64 `json:"second_half_ratio"`
	DecouplingPct   float64 `json:"decoupling_pct"`
	Status          string  `json:"status"`
}

// AnalyzeAerobicDecoupling pairs each derived pace with the HR of the same
// sample. Returns nil when fewer than MinHalfSplitSamples pairs exist.
// points must carry cumulative distances.
func AnalyzeAerobicDecoupling(points []store.Trackpoint) *AerobicDecoupling {
	var hrs, paces []float64
	for _, s := range instantPaces(points) {
		hr, ok := heartRate(points[s.index])
		if !ok {
			continue
		}
		hrs = append(hrs, hr)
		paces = append(paces, s.pace)
	}
	if len(hrs) < MinHalfSplitSamples {
		return nil
	}

	mid := len(hrs) / 2
	first := mean(hrs[:mid]) / mean(paces[:mid])
	second := mean(hrs[mid:]) / mean(paces[mid:])
	if first == 0 {
		return nil
	}

	pct := (second - first) / first * 100
	return &AerobicDecoupling{
		FirstHalfRatio:  first,
		SecondHalfRatio: second,
		DecouplingPct:   pct,
		Status:          decouplingStatus(pct),
	}
}

func decouplingStatus(pct float64) string {
	if pct < 0 {
		pct = -pct
	}
	switch {
	case pct < 5:
		return "excellent"
	case pct < 10:
		return "good"
	default:
		return "poor"
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
