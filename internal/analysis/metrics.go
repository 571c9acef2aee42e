package analysis

import "apexrun/internal/store"

// ComputeMetrics derives the full metrics record for one session's samples.
// Distances are filled first, so raw parser output can be passed directly.
func ComputeMetrics(points []store.Trackpoint) store.Metrics {
	filled := FillDistances(points)

	var distance float64
	if n := len(filled); n > 0 {
		cum := distances(filled)
		distance = cum[n-1] - cum[0]
	}

	duration := DurationMinutes(filled)
	gain := ElevationGain(filled)
	gapDistance := GAPDistance(distance, gain)
	avgHR, maxHR := heartRateStats(filled)

	return store.Metrics{
		DistanceKm:         distance / 1000,
		DistanceMeters:     distance,
		DurationMinutes:    duration,
		ElevationGain:      gain,
		PaceMinPerKm:       Pace(duration, distance),
		GAPDistanceMeters:  gapDistance,
		GAPPaceMinPerKm:    Pace(duration, gapDistance),
		AvgHeartRate:       avgHR,
		MaxHeartRate:       maxHR,
		AvgCadence:         averageCadence(filled),
		EfficiencyIndex:    EfficiencyIndex(distance, duration, avgHR),
		GAPEfficiencyIndex: EfficiencyIndex(gapDistance, duration, avgHR),
		BestEfforts:        BestEfforts(filled),
	}
}

// DurationMinutes returns the time between first and last sample
func DurationMinutes(points []store.Trackpoint) float64 {
	if len(points) < 2 {
		return 0
	}
	return points[len(points)-1].Timestamp.Sub(points[0].Timestamp).Minutes()
}

// heartRate returns the sample's heart rate; zero or negative readings are dropouts
func heartRate(p store.Trackpoint) (float64, bool) {
	if p.HeartRateBPM == nil || *p.HeartRateBPM <= 0 {
		return 0, false
	}
	return float64(*p.HeartRateBPM), true
}

// heartRateStats returns mean and peak over samples that carry a heart rate
func heartRateStats(points []store.Trackpoint) (avg, peak *float64) {
	var sum, maxHR float64
	var count int
	for _, p := range points {
		hr, ok := heartRate(p)
		if !ok {
			continue
		}
		sum += hr
		if count == 0 || hr > maxHR {
			maxHR = hr
		}
		count++
	}
	if count == 0 {
		return nil, nil
	}
	mean := sum / float64(count)
	return &mean, &maxHR
}

func averageCadence(points []store.Trackpoint) *float64 {
	var sum float64
	var count int
	for _, p := range points {
		if p.CadenceSPM != nil {
			sum += float64(*p.CadenceSPM)
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}
