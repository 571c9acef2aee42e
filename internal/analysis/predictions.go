package analysis

import (
	"math"
	"time"
)

// RiegelExponent is the fatigue exponent in T2 = T1 * (D2/D1)^k
const RiegelExponent = 1.06

// PredictionTarget represents a target distance for predictions
type PredictionTarget struct {
	Name   string
	Meters float64
}

// PredictionTargets defines the standard prediction distances
var PredictionTargets = []PredictionTarget{
	{"5K", Distance5K},
	{"10K", Distance10K},
	{"21K", DistanceHalfMara},
	{"42K", DistanceMarathon},
}

// SourcePriority lists the record distances preferred as a prediction base,
// best first. Mid distances extrapolate most reliably in both directions.
var SourcePriority = []string{"10K", "5K", "15K", "21K"}

// RacePrediction represents a predicted race time
type RacePrediction struct {
	Target           string  `json:"target"`
	TargetMeters     float64 `json:"target_meters"`
	PredictedMinutes float64 `json:"predicted_minutes"`
	PaceMinPerKm     float64 `json:"pace_min_per_km"`
	SourceDistance   string  `json:"source_distance"`
	Confidence       string  `json:"confidence"` // "high", "medium", "low"
	ConfidenceScore  float64 `json:"confidence_score"`
	VDOTMinutes      float64 `json:"vdot_minutes,omitempty"` // equivalent time from the VDOT table
}

// RiegelTime predicts the time over d2 meters from t1 minutes over d1 meters
func RiegelTime(t1Minutes, d1, d2 float64) float64 {
	if t1Minutes <= 0 || d1 <= 0 || d2 <= 0 {
		return 0
	}
	return t1Minutes * math.Pow(d2/d1, RiegelExponent)
}

// SelectSourceRecord chooses the personal record used as the prediction base:
// the first available distance in SourcePriority, else the longest record.
func SelectSourceRecord(records []PersonalRecord) *PersonalRecord {
	if len(records) == 0 {
		return nil
	}

	for _, label := range SourcePriority {
		for i := range records {
			if records[i].Distance == label {
				return &records[i]
			}
		}
	}

	longest := &records[0]
	for i := range records {
		if records[i].DistanceMeters > longest.DistanceMeters {
			longest = &records[i]
		}
	}
	return longest
}

// CalculateConfidence scores a prediction from 0.0 to 1.0.
// Factors: distance extrapolation ratio and how old the source record is.
func CalculateConfidence(source PersonalRecord, targetMeters float64, now time.Time) (float64, string) {
	score := 1.0

	ratio := targetMeters / source.DistanceMeters
	if ratio < 1 {
		ratio = 1 / ratio
	}
	switch {
	case ratio > 4:
		score *= 0.7 // e.g. 5K to marathon
	case ratio > 2:
		score *= 0.85
	case ratio > 1.5:
		score *= 0.95
	}

	daysSince := now.Sub(source.Date).Hours() / 24
	switch {
	case daysSince > 180:
		score *= 0.75
	case daysSince > 90:
		score *= 0.9
	case daysSince > 30:
		score *= 0.95
	}

	var label string
	switch {
	case score >= 0.85:
		label = "high"
	case score >= 0.65:
		label = "medium"
	default:
		label = "low"
	}

	return score, label
}

// PredictRaces produces predictions for every target other than the source distance
func PredictRaces(records []PersonalRecord, now time.Time) []RacePrediction {
	source := SelectSourceRecord(records)
	if source == nil {
		return nil
	}

	vdot := EstimateVDOT(source.DistanceMeters, source.DurationMinutes)

	var predictions []RacePrediction
	for _, target := range PredictionTargets {
		if target.Name == source.Distance {
			continue
		}

		minutes := RiegelTime(source.DurationMinutes, source.DistanceMeters, target.Meters)
		if minutes <= 0 {
			continue
		}

		score, label := CalculateConfidence(*source, target.Meters, now)
		predictions = append(predictions, RacePrediction{
			Target:           target.Name,
			TargetMeters:     target.Meters,
			PredictedMinutes: minutes,
			PaceMinPerKm:     Pace(minutes, target.Meters),
			SourceDistance:   source.Distance,
			Confidence:       label,
			ConfidenceScore:  math.Round(score*100) / 100,
			VDOTMinutes:      VDOTTime(vdot, target.Meters),
		})
	}

	return predictions
}
