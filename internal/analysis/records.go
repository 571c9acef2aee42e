package analysis

import (
	"time"

	"apexrun/internal/store"
)

// RecordSource tells how a personal record was derived
type RecordSource string

const (
	SourceBestEffort    RecordSource = "best_effort"
	SourceTotalDistance RecordSource = "total_distance"
)

// PersonalRecord is the fastest known effort at one standard distance
type PersonalRecord struct {
	Distance        string       `json:"distance"`
	DistanceMeters  float64      `json:"distance_meters"`
	Filename        string       `json:"filename"`
	Date            time.Time    `json:"date"`
	PaceMinPerKm    float64      `json:"pace_min_per_km"`
	DurationMinutes float64      `json:"duration_minutes"`
	Source          RecordSource `json:"source"`
}

// PersonalRecords finds, for each standard distance, the session with the
// lowest pace. Sessions with a best-effort table compete on their entry for
// that distance; legacy sessions without one compete on overall pace when
// their total distance is within ±2% of the target.
//
// Equal paces are resolved by earliest start time, then by filename, so the
// result does not depend on input order. Distances nobody qualifies for are
// omitted. Records are returned in catalogue order.
func PersonalRecords(sessions []store.Session) []PersonalRecord {
	var records []PersonalRecord

	for _, d := range StandardDistances {
		var best *PersonalRecord
		for _, s := range sessions {
			candidate, ok := recordCandidate(s, d)
			if !ok {
				continue
			}
			if best == nil || fasterRecord(candidate, *best) {
				c := candidate
				best = &c
			}
		}
		if best != nil {
			records = append(records, *best)
		}
	}

	return records
}

func recordCandidate(s store.Session, d StandardDistance) (PersonalRecord, bool) {
	m := s.Metrics
	if m == nil {
		return PersonalRecord{}, false
	}

	rec := PersonalRecord{
		Distance:       d.Label,
		DistanceMeters: d.Meters,
		Filename:       s.Filename,
		Date:           s.StartTime,
	}

	if m.BestEfforts != nil {
		effort, ok := m.BestEfforts[d.Label]
		if !ok || effort.PaceMinPerKm <= 0 {
			return PersonalRecord{}, false
		}
		rec.PaceMinPerKm = effort.PaceMinPerKm
		rec.DurationMinutes = effort.DurationMinutes
		rec.Source = SourceBestEffort
		return rec, true
	}

	if m.PaceMinPerKm <= 0 || !MatchesDistance(m.DistanceMeters, d.Meters) {
		return PersonalRecord{}, false
	}
	rec.PaceMinPerKm = m.PaceMinPerKm
	rec.DurationMinutes = m.DurationMinutes
	rec.Source = SourceTotalDistance
	return rec, true
}

func fasterRecord(a, b PersonalRecord) bool {
	if a.PaceMinPerKm != b.PaceMinPerKm {
		return a.PaceMinPerKm < b.PaceMinPerKm
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	return a.Filename < b.Filename
}
