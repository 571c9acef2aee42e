package analysis

import "apexrun/internal/store"

// ProcessSession computes every per-session derived field: cumulative
// distances on the trackpoints, metrics, estimated max HR, zone distribution
// and session type. Training load is left alone; it depends on the whole
// collection and is set by RecomputeAllLoads.
func ProcessSession(s store.Session, athlete Athlete) store.Session {
	s.Trackpoints = FillDistances(s.Trackpoints)

	m := ComputeMetrics(s.Trackpoints)
	s.Metrics = &m

	s.MaxHREstimated = nil
	s.HRZones = map[string]store.ZoneShare{}
	if m.MaxHeartRate != nil {
		maxHR := EstimateMaxHR(m.MaxHeartRate, athlete)
		s.MaxHREstimated = &maxHR
		s.HRZones = ZoneDistribution(s.Trackpoints, maxHR)
	}

	dominant, _ := DominantZone(s.HRZones)
	s.SessionType = Classify(SessionFeatures{
		DurationMinutes: m.DurationMinutes,
		DistanceKm:      m.DistanceKm,
		PaceCV:          PaceCV(PaceSeries(s.Trackpoints)),
		DominantZone:    dominant,
	})

	return s
}

// NeedsProcessing reports whether a loaded session is missing any derived
// field that ProcessSession would fill
func NeedsProcessing(s store.Session) bool {
	return s.Metrics == nil ||
		s.Metrics.BestEfforts == nil ||
		s.SessionType == "" ||
		s.HRZones == nil
}

// SessionAnalysis is the on-demand deep dive for one session
type SessionAnalysis struct {
	PaceCV            float64            `json:"pace_cv"`
	Splits            []Split            `json:"splits"`
	Pacing            *Pacing            `json:"pacing"`
	CardiacDrift      *CardiacDrift      `json:"cardiac_drift"`
	AerobicDecoupling *AerobicDecoupling `json:"aerobic_decoupling"`
}

// AnalyzeSession computes splits, pacing, drift and decoupling for a session
func AnalyzeSession(s store.Session) SessionAnalysis {
	points := FillDistances(s.Trackpoints)
	splits := KmSplits(points)

	return SessionAnalysis{
		PaceCV:            PaceCV(PaceSeries(points)),
		Splits:            splits,
		Pacing:            PacingStrategy(splits),
		CardiacDrift:      AnalyzeCardiacDrift(points),
		AerobicDecoupling: AnalyzeAerobicDecoupling(points),
	}
}
