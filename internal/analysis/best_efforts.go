package analysis

import (
	"time"

	"apexrun/internal/store"
)

// StandardDistance is one entry of the best-effort catalogue
type StandardDistance struct {
	Label  string
	Meters float64
}

// Standard effort distances in meters
const (
	Distance1K       = 1000
	Distance3K       = 3000
	Distance5K       = 5000
	Distance10K      = 10000
	Distance15K      = 15000
	DistanceHalfMara = 21097.5
	DistanceMarathon = 42195

	// LegacyDistanceTolerance is the ±fraction used to match a whole session
	// to a standard distance when it carries no best-effort table
	LegacyDistanceTolerance = 0.02
)

// StandardDistances is the catalogue, shortest first
var StandardDistances = []StandardDistance{
	{"1K", Distance1K},
	{"3K", Distance3K},
	{"5K", Distance5K},
	{"10K", Distance10K},
	{"15K", Distance15K},
	{"21K", DistanceHalfMara},
	{"42K", DistanceMarathon},
}

// StandardDistanceByLabel looks up a catalogue entry
func StandardDistanceByLabel(label string) (StandardDistance, bool) {
	for _, d := range StandardDistances {
		if d.Label == label {
			return d, true
		}
	}
	return StandardDistance{}, false
}

// FastestSegment finds the shortest elapsed time of any contiguous window whose
// cumulative-distance span is at least target meters.
//
// cum must be non-decreasing and the same length as points. The right edge
// walks every sample; while the window still covers target the left edge is
// pulled in, so the whole scan is linear.
func FastestSegment(points []store.Trackpoint, cum []float64, target float64) (time.Duration, bool) {
	if target <= 0 || len(points) < 2 || len(cum) != len(points) {
		return 0, false
	}

	var (
		best  time.Duration
		found bool
		left  int
	)
	for right := 1; right < len(points); right++ {
		for left < right && cum[right]-cum[left] >= target {
			elapsed := points[right].Timestamp.Sub(points[left].Timestamp)
			if elapsed > 0 && (!found || elapsed < best) {
				best = elapsed
				found = true
			}
			left++
		}
	}

	return best, found
}

// BestEfforts computes the best-effort table for every standard distance the
// session covers. points must already carry cumulative distances.
// The result is never nil; a short session yields an empty table.
func BestEfforts(points []store.Trackpoint) map[string]store.BestEffort {
	efforts := make(map[string]store.BestEffort)
	if len(points) < 2 {
		return efforts
	}

	cum := distances(points)
	span := cum[len(cum)-1] - cum[0]

	for _, d := range StandardDistances {
		if span < d.Meters {
			break
		}
		elapsed, ok := FastestSegment(points, cum, d.Meters)
		if !ok {
			continue
		}
		minutes := elapsed.Minutes()
		efforts[d.Label] = store.BestEffort{
			DurationMinutes: minutes,
			PaceMinPerKm:    minutes / (d.Meters / 1000),
		}
	}

	return efforts
}

// MatchesDistance checks whether a session's total distance is within
// ±LegacyDistanceTolerance of target
func MatchesDistance(distanceMeters, target float64) bool {
	lowerBound := target * (1 - LegacyDistanceTolerance)
	upperBound := target * (1 + LegacyDistanceTolerance)
	return distanceMeters >= lowerBound && distanceMeters <= upperBound
}
