package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"apexrun/internal/store"
)

type gpxFile struct {
	XMLName xml.Name   `xml:"gpx"`
	Tracks  []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

// gpxPoint reads the Garmin TrackPointExtension for heart rate and cadence
type gpxPoint struct {
	Lat       float64  `xml:"lat,attr"`
	Lon       float64  `xml:"lon,attr"`
	Elevation *float64 `xml:"ele"`
	Time      string   `xml:"time"`
	HeartRate *int     `xml:"extensions>TrackPointExtension>hr"`
	Cadence   *int     `xml:"extensions>TrackPointExtension>cad"`
}

func decodeGPX(r io.Reader) ([]store.Trackpoint, error) {
	var doc gpxFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding gpx: %w", err)
	}

	var points []store.Trackpoint
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, pt := range seg.Points {
				raw := strings.TrimSpace(pt.Time)
				if raw == "" {
					continue
				}
				ts, err := time.Parse(time.RFC3339Nano, raw)
				if err != nil {
					return nil, fmt.Errorf("parsing time %q: %w", raw, err)
				}

				lat, lon := pt.Lat, pt.Lon
				p := store.Trackpoint{
					Timestamp:    ts.UTC(),
					Lat:          &lat,
					Lon:          &lon,
					AltitudeM:    pt.Elevation,
					HeartRateBPM: pt.HeartRate,
				}
				if pt.Cadence != nil {
					p.CadenceSPM = doubledCadence(*pt.Cadence)
				}
				points = append(points, p)
			}
		}
	}
	return points, nil
}
