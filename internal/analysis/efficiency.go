package analysis

// GAPElevationFactor is the horizontal meters credited per meter of climbing
const GAPElevationFactor = 10

// GAPDistance returns the grade-adjusted distance: every meter of positive
// elevation gain counts as GAPElevationFactor extra meters
func GAPDistance(distanceMeters, elevationGain float64) float64 {
	return distanceMeters + elevationGain*GAPElevationFactor
}

// Pace returns minutes per kilometer, or 0 when distance is 0
func Pace(durationMinutes, distanceMeters float64) float64 {
	if distanceMeters <= 0 {
		return 0
	}
	return durationMinutes / (distanceMeters / 1000)
}

// EfficiencyIndex calculates meters per minute per heartbeat:
// (distance / duration) / avg HR.
// Returns nil when heart rate is missing or zero, or duration is zero.
// Higher is better - covering more ground for the same cardiac cost.
func EfficiencyIndex(distanceMeters, durationMinutes float64, avgHR *float64) *float64 {
	if avgHR == nil || *avgHR == 0 || durationMinutes == 0 {
		return nil
	}
	ei := (distanceMeters / durationMinutes) / *avgHR
	return &ei
}
