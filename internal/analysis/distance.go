package analysis

import (
	"math"

	"apexrun/internal/store"
)

// EarthRadiusMeters is the mean Earth radius used by Haversine
const EarthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters between two points given in degrees
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// Floating point can push a slightly outside [0,1]
	a = math.Max(0, math.Min(1, a))

	return EarthRadiusMeters * 2 * math.Asin(math.Sqrt(a))
}

// position returns the coordinates of p when both are present and finite
func position(p store.Trackpoint) (lat, lon float64, ok bool) {
	if !p.HasPosition() || math.IsNaN(*p.Lat) || math.IsNaN(*p.Lon) {
		return 0, 0, false
	}
	return *p.Lat, *p.Lon, true
}

// CumulativeDistance returns the running great-circle distance for each point.
// A segment with a missing coordinate at either end adds nothing.
func CumulativeDistance(points []store.Trackpoint) []float64 {
	cum := make([]float64, len(points))
	var total float64

	for i := 1; i < len(points); i++ {
		lat1, lon1, ok1 := position(points[i-1])
		lat2, lon2, ok2 := position(points[i])
		if ok1 && ok2 {
			total += Haversine(lat1, lon1, lat2, lon2)
		}
		cum[i] = total
	}

	return cum
}

// ElevationGain sums the positive altitude deltas between consecutive samples.
// A delta with either altitude missing is skipped.
func ElevationGain(points []store.Trackpoint) float64 {
	var gain float64
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].AltitudeM, points[i].AltitudeM
		if prev == nil || cur == nil {
			continue
		}
		if diff := *cur - *prev; diff > 0 {
			gain += diff
		}
	}
	return gain
}

// FillDistances returns a copy of points with DistanceM populated on every sample.
//
// Device distances are used when every sample carries one (clamped so the series
// never decreases). Otherwise distances are computed from positions. With no
// positions at all, whatever device values exist are carried forward.
func FillDistances(points []store.Trackpoint) []store.Trackpoint {
	out := make([]store.Trackpoint, len(points))
	copy(out, points)
	if len(out) == 0 {
		return out
	}

	allDevice, anyPosition := true, false
	for _, p := range points {
		if p.DistanceM == nil {
			allDevice = false
		}
		if _, _, ok := position(p); ok {
			anyPosition = true
		}
	}

	switch {
	case !allDevice && anyPosition:
		for i, d := range CumulativeDistance(points) {
			d := d
			out[i].DistanceM = &d
		}
	default:
		var running float64
		for i, p := range points {
			if p.DistanceM != nil && *p.DistanceM > running {
				running = *p.DistanceM
			}
			d := running
			out[i].DistanceM = &d
		}
	}

	return out
}

// distances extracts the cumulative distance series from filled points
func distances(points []store.Trackpoint) []float64 {
	cum := make([]float64, len(points))
	for i, p := range points {
		if p.DistanceM != nil {
			cum[i] = *p.DistanceM
		}
	}
	return cum
}
