package store

import "time"

// Trackpoint represents a single timed sample from a workout recording
type Trackpoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Lat          *float64  `json:"lat,omitempty"`
	Lon          *float64  `json:"lon,omitempty"`
	AltitudeM    *float64  `json:"altitude_m,omitempty"`
	HeartRateBPM *int      `json:"heart_rate_bpm,omitempty"`
	CadenceSPM   *int      `json:"cadence_spm,omitempty"` // both legs
	DistanceM    *float64  `json:"distance_m,omitempty"`  // cumulative meters
}

// HasPosition reports whether both coordinates are present
func (p Trackpoint) HasPosition() bool {
	return p.Lat != nil && p.Lon != nil
}

// BestEffort is the fastest contiguous segment covering a standard distance
type BestEffort struct {
	DurationMinutes float64 `json:"duration_minutes"`
	PaceMinPerKm    float64 `json:"pace_min_per_km"`
}

// Metrics holds the derived per-session figures.
// Pointer fields are nil when the source data cannot support them.
type Metrics struct {
	DistanceKm         float64               `json:"distance_km"`
	DistanceMeters     float64               `json:"distance_meters"`
	DurationMinutes    float64               `json:"duration_minutes"`
	ElevationGain      float64               `json:"elevation_gain"`
	PaceMinPerKm       float64               `json:"pace_min_per_km"`
	GAPDistanceMeters  float64               `json:"gap_distance_meters"`
	GAPPaceMinPerKm    float64               `json:"gap_pace_min_per_km"`
	AvgHeartRate       *float64              `json:"avg_heart_rate"`
	MaxHeartRate       *float64              `json:"max_heart_rate"`
	AvgCadence         *float64              `json:"avg_cadence"`
	EfficiencyIndex    *float64              `json:"efficiency_index"`
	GAPEfficiencyIndex *float64              `json:"gap_efficiency_index"`
	BestEfforts        map[string]BestEffort `json:"best_efforts"`
}

// TrainingLoad is the per-session load record
type TrainingLoad struct {
	TRIMP           float64 `json:"trimp"`
	TSS             float64 `json:"tss"`
	Duration        float64 `json:"duration"` // minutes
	Distance        float64 `json:"distance"` // km
	IntensityFactor float64 `json:"intensity_factor"`
}

// ZoneShare is the share of heart rate samples that fell in one zone
type ZoneShare struct {
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// SessionType is the categorical training type of a session
type SessionType string

const (
	SessionRecovery  SessionType = "recovery"
	SessionEasy      SessionType = "easy"
	SessionTempo     SessionType = "tempo"
	SessionThreshold SessionType = "threshold"
	SessionIntervals SessionType = "intervals"
	SessionLongRun   SessionType = "long_run"
	SessionFartlek   SessionType = "fartlek"
	SessionRace      SessionType = "race"
)

// Session is one workout together with its cached derived fields.
// Derived fields are nil (or empty) until computed; loaders use their
// absence to decide what needs backfilling.
type Session struct {
	Filename       string               `json:"filename"`
	StartTime      time.Time            `json:"start_time"`
	Trackpoints    []Trackpoint         `json:"trackpoints"`
	Metrics        *Metrics             `json:"metrics,omitempty"`
	SessionType    SessionType          `json:"session_type,omitempty"`
	HRZones        map[string]ZoneShare `json:"hr_zones"`
	MaxHREstimated *float64             `json:"max_hr_estimated,omitempty"`
	TrainingLoad   *TrainingLoad        `json:"training_load,omitempty"`
}

// SessionKey identifies a session for deduplication
type SessionKey struct {
	Filename  string
	StartTime string // RFC3339Nano, UTC
}

// Key returns the (filename, start_time) identity of the session
func (s Session) Key() SessionKey {
	return SessionKey{
		Filename:  s.Filename,
		StartTime: s.StartTime.UTC().Format(time.RFC3339Nano),
	}
}

// StorageStats describes the persisted history
type StorageStats struct {
	TotalSessions int
	SizeBytes     int64
	Earliest      *time.Time
	Latest        *time.Time
}

// SummaryRow is the flat per-session view rebuilt from the history
type SummaryRow struct {
	Filename           string      `json:"filename"`
	StartTime          time.Time   `json:"start_time"`
	SessionType        SessionType `json:"session_type"`
	DistanceKm         float64     `json:"distance_km"`
	DurationMinutes    float64     `json:"duration_minutes"`
	PaceMinPerKm       float64     `json:"pace_min_per_km"`
	ElevationGain      float64     `json:"elevation_gain"`
	GAPPaceMinPerKm    float64     `json:"gap_pace_min_per_km"`
	AvgHeartRate       *float64    `json:"avg_heart_rate"`
	MaxHeartRate       *float64    `json:"max_heart_rate"`
	AvgCadence         *float64    `json:"avg_cadence"`
	EfficiencyIndex    *float64    `json:"efficiency_index"`
	GAPEfficiencyIndex *float64    `json:"gap_efficiency_index"`
	TRIMP              float64     `json:"trimp"`
}
