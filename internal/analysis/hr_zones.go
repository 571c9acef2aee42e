package analysis

import "apexrun/internal/store"

// Zone is a heart rate band expressed as percentages of max HR
type Zone struct {
	ID     string
	MinPct float64
	MaxPct float64
}

// Zones are the five fixed bands, lowest first.
// A sample belongs to the highest zone whose MinPct it reaches; anything
// under Z1's floor counts as Z1 and anything over 100% counts as Z5.
var Zones = []Zone{
	{"Z1", 50, 60},
	{"Z2", 60, 70},
	{"Z3", 70, 80},
	{"Z4", 80, 90},
	{"Z5", 90, 100},
}

// Max HR estimation constants
const (
	FallbackMaxHR       = 185.0
	MinPlausibleMaxHR   = 170.0
	ObservedPeakFloor   = 150.0 // peaks at or below this are treated as noise
	ObservedPeakBuffer  = 5.0
	AgeFormulaIntercept = 220.0
)

// Athlete carries the optional personal settings used by the HR models
type Athlete struct {
	Sex           Sex
	Age           int     // 0 when unknown
	MaxHROverride float64 // 0 when not set
}

// EstimateMaxHR picks a per-session maximum heart rate:
// explicit override, else observed peak + 5 when the peak is above 150,
// else 220 - age, else 185.
func EstimateMaxHR(observedPeak *float64, athlete Athlete) float64 {
	switch {
	case athlete.MaxHROverride > 0:
		return athlete.MaxHROverride
	case observedPeak != nil && *observedPeak > ObservedPeakFloor:
		return *observedPeak + ObservedPeakBuffer
	case athlete.Age > 0:
		return AgeFormulaIntercept - float64(athlete.Age)
	default:
		return FallbackMaxHR
	}
}

// ZoneFor classifies a heart rate against maxHR
func ZoneFor(hr, maxHR float64) string {
	pct := hr / maxHR * 100
	for i := len(Zones) - 1; i > 0; i-- {
		if pct >= Zones[i].MinPct {
			return Zones[i].ID
		}
	}
	return Zones[0].ID
}

// ZoneDistribution returns the share of heart rate samples in each zone.
// With no samples (or no usable max HR) the result is empty but non-nil.
func ZoneDistribution(points []store.Trackpoint, maxHR float64) map[string]store.ZoneShare {
	dist := make(map[string]store.ZoneShare)
	if maxHR <= 0 {
		return dist
	}

	counts := make(map[string]int, len(Zones))
	var total int
	for _, p := range points {
		hr, ok := heartRate(p)
		if !ok {
			continue
		}
		counts[ZoneFor(hr, maxHR)]++
		total++
	}
	if total == 0 {
		return dist
	}

	for _, z := range Zones {
		dist[z.ID] = store.ZoneShare{
			Percentage: float64(counts[z.ID]) / float64(total) * 100,
			Count:      counts[z.ID],
		}
	}
	return dist
}

// DominantZone returns the zone holding the largest share of samples.
// Ties go to the lower zone. ok is false when the distribution is empty.
func DominantZone(dist map[string]store.ZoneShare) (zone string, ok bool) {
	best := -1.0
	for _, z := range Zones {
		share, present := dist[z.ID]
		if !present {
			continue
		}
		if share.Percentage > best {
			best = share.Percentage
			zone = z.ID
		}
	}
	return zone, zone != ""
}
