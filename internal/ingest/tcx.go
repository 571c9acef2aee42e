package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"apexrun/internal/store"
)

// Training Center XML, matched on local names so any namespace prefix works
type tcxDatabase struct {
	XMLName    xml.Name      `xml:"TrainingCenterDatabase"`
	Activities []tcxActivity `xml:"Activities>Activity"`
}

type tcxActivity struct {
	Sport string   `xml:"Sport,attr"`
	Laps  []tcxLap `xml:"Lap"`
}

type tcxLap struct {
	Tracks []tcxTrack `xml:"Track"`
}

type tcxTrack struct {
	Points []tcxTrackpoint `xml:"Trackpoint"`
}

type tcxTrackpoint struct {
	Time           string       `xml:"Time"`
	Position       *tcxPosition `xml:"Position"`
	AltitudeMeters *float64     `xml:"AltitudeMeters"`
	DistanceMeters *float64     `xml:"DistanceMeters"`
	HeartRate      *struct {
		Value int `xml:"Value"`
	} `xml:"HeartRateBpm"`
	Cadence    *int `xml:"Cadence"`
	RunCadence *int `xml:"Extensions>TPX>RunCadence"`
}

type tcxPosition struct {
	Lat *float64 `xml:"LatitudeDegrees"`
	Lon *float64 `xml:"LongitudeDegrees"`
}

func decodeTCX(r io.Reader) ([]store.Trackpoint, error) {
	var db tcxDatabase
	if err := xml.NewDecoder(r).Decode(&db); err != nil {
		return nil, fmt.Errorf("decoding tcx: %w", err)
	}

	var points []store.Trackpoint
	for _, a := range db.Activities {
		for _, lap := range a.Laps {
			for _, trk := range lap.Tracks {
				for _, tp := range trk.Points {
					p, ok, err := tp.trackpoint()
					if err != nil {
						return nil, err
					}
					if ok {
						points = append(points, p)
					}
				}
			}
		}
	}
	return points, nil
}

// trackpoint converts one element; ok is false when it carries no time
func (tp tcxTrackpoint) trackpoint() (store.Trackpoint, bool, error) {
	raw := strings.TrimSpace(tp.Time)
	if raw == "" {
		return store.Trackpoint{}, false, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return store.Trackpoint{}, false, fmt.Errorf("parsing time %q: %w", raw, err)
	}

	p := store.Trackpoint{
		Timestamp: ts.UTC(),
		AltitudeM: tp.AltitudeMeters,
		DistanceM: tp.DistanceMeters,
	}
	if tp.Position != nil && tp.Position.Lat != nil && tp.Position.Lon != nil {
		p.Lat, p.Lon = tp.Position.Lat, tp.Position.Lon
	}
	if tp.HeartRate != nil {
		hr := tp.HeartRate.Value
		p.HeartRateBPM = &hr
	}
	switch {
	case tp.Cadence != nil:
		p.CadenceSPM = doubledCadence(*tp.Cadence)
	case tp.RunCadence != nil:
		p.CadenceSPM = doubledCadence(*tp.RunCadence)
	}

	return p, true, nil
}
