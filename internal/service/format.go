package service

import (
	"fmt"
	"math"
)

// FormatPace formats minutes per km as "M:SS"
func FormatPace(minPerKm float64) string {
	if minPerKm <= 0 || math.IsInf(minPerKm, 0) || math.IsNaN(minPerKm) {
		return "-:--"
	}
	seconds := int(math.Round(minPerKm * 60))
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatDuration formats minutes as "H:MM:SS" or "M:SS"
func FormatDuration(minutes float64) string {
	seconds := int(math.Round(minutes * 60))
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatOptional formats a nullable value, "-" when absent
func FormatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
