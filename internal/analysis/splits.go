package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"apexrun/internal/store"
)

// Split summarizes one whole kilometer of a session
type Split struct {
	Km              int      `json:"km"`
	TimeMinutes     float64  `json:"time_min"`
	PaceMinPerKm    float64  `json:"pace"`
	AvgHR           *float64 `json:"avg_hr"`
	ElevationChange *float64 `json:"elevation_change"`
	AvgCadence      *float64 `json:"avg_cadence"`
}

// KmSplits buckets samples by whole kilometer of cumulative distance.
// Only complete kilometers are reported. points must carry cumulative distances.
func KmSplits(points []store.Trackpoint) []Split {
	if len(points) == 0 {
		return nil
	}
	cum := distances(points)
	fullKm := int(cum[len(cum)-1] / 1000)

	var splits []Split
	for km := 0; km < fullKm; km++ {
		lo, hi := float64(km)*1000, float64(km+1)*1000

		var (
			first, last   = -1, -1
			hrs, cadences []float64
			minAlt        = math.Inf(1)
			maxAlt        = math.Inf(-1)
		)
		for i, p := range points {
			if cum[i] < lo || cum[i] >= hi {
				continue
			}
			if first < 0 {
				first = i
			}
			last = i
			if hr, ok := heartRate(p); ok {
				hrs = append(hrs, hr)
			}
			if p.CadenceSPM != nil {
				cadences = append(cadences, float64(*p.CadenceSPM))
			}
			if p.AltitudeM != nil {
				minAlt = math.Min(minAlt, *p.AltitudeM)
				maxAlt = math.Max(maxAlt, *p.AltitudeM)
			}
		}
		if first < 0 {
			continue
		}

		minutes := points[last].Timestamp.Sub(points[first].Timestamp).Minutes()
		split := Split{
			Km:           km + 1,
			TimeMinutes:  minutes,
			PaceMinPerKm: minutes,
			AvgHR:        optionalMean(hrs),
			AvgCadence:   optionalMean(cadences),
		}
		if maxAlt >= minAlt {
			change := maxAlt - minAlt
			split.ElevationChange = &change
		}
		splits = append(splits, split)
	}

	return splits
}

func optionalMean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := stat.Mean(values, nil)
	return &m
}

// Pacing strategies
const (
	PacingEven           = "even"
	PacingNegative       = "negative"
	PacingSlightPositive = "slight_positive"
	PacingPositive       = "positive"
)

// Pacing compares the mean split pace of the two halves of a session
type Pacing struct {
	Strategy        string  `json:"strategy"`
	FirstHalfPace   float64 `json:"first_half_pace"`
	SecondHalfPace  float64 `json:"second_half_pace"`
	PaceDiffPct     float64 `json:"pace_diff_pct"`
	PaceVariability float64 `json:"pace_variability"` // CV of split paces, percent
}

// PacingStrategy classifies a session's splits. Returns nil with fewer than two splits.
func PacingStrategy(splits []Split) *Pacing {
	if len(splits) < 2 {
		return nil
	}

	paces := make([]float64, len(splits))
	for i, s := range splits {
		paces[i] = s.PaceMinPerKm
	}

	mid := len(paces) / 2
	first := stat.Mean(paces[:mid], nil)
	second := stat.Mean(paces[mid:], nil)
	if first <= 0 {
		return nil
	}
	diff := (second - first) / first * 100

	p := &Pacing{
		FirstHalfPace:  first,
		SecondHalfPace: second,
		PaceDiffPct:    diff,
	}
	switch {
	case math.Abs(diff) < 2:
		p.Strategy = PacingEven
	case diff <= -2:
		p.Strategy = PacingNegative
	case diff < 5:
		p.Strategy = PacingSlightPositive
	default:
		p.Strategy = PacingPositive
	}

	if m := stat.Mean(paces, nil); m > 0 {
		p.PaceVariability = stat.StdDev(paces, nil) / m * 100
	}

	return p
}
