package ingest

import (
	"fmt"
	"io"
	"math"

	"github.com/tormoder/fit"

	"apexrun/internal/store"
)

const semicirclesToDeg = 180.0 / 2147483648.0 // 2^31

func decodeFIT(r io.Reader) ([]store.Trackpoint, error) {
	fd, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding fit: %w", err)
	}
	af, err := fd.Activity()
	if err != nil {
		return nil, fmt.Errorf("reading fit activity: %w", err)
	}

	points := make([]store.Trackpoint, 0, len(af.Records))
	for _, rec := range af.Records {
		if p, ok := fitTrackpoint(rec); ok {
			points = append(points, p)
		}
	}
	return points, nil
}

// fitTrackpoint maps a record message, dropping FIT invalid sentinels.
// ok is false for records without a usable timestamp.
func fitTrackpoint(rec *fit.RecordMsg) (store.Trackpoint, bool) {
	if rec == nil || rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
		return store.Trackpoint{}, false
	}

	p := store.Trackpoint{Timestamp: rec.Timestamp.UTC()}

	latSC, lonSC := rec.PositionLat.Semicircles(), rec.PositionLong.Semicircles()
	if latSC != math.MaxInt32 && lonSC != math.MaxInt32 && (latSC != 0 || lonSC != 0) {
		lat := float64(latSC) * semicirclesToDeg
		lon := float64(lonSC) * semicirclesToDeg
		if lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
			p.Lat, p.Lon = &lat, &lon
		}
	}

	alt := rec.GetEnhancedAltitudeScaled()
	if math.IsNaN(alt) {
		alt = rec.GetAltitudeScaled()
	}
	if !math.IsNaN(alt) {
		p.AltitudeM = &alt
	}

	if d := rec.GetDistanceScaled(); !math.IsNaN(d) {
		p.DistanceM = &d
	}

	if rec.HeartRate != math.MaxUint8 && rec.HeartRate != 0 {
		hr := int(rec.HeartRate)
		p.HeartRateBPM = &hr
	}
	if rec.Cadence != math.MaxUint8 {
		p.CadenceSPM = doubledCadence(int(rec.Cadence))
	}

	return p, true
}
