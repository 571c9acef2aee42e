package strava

import (
	"fmt"
	"time"

	"apexrun/internal/store"
)

// Activity is the subset of a Strava activity summary used for syncing
type Activity struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	SportType    string    `json:"sport_type"`
	StartDate    time.Time `json:"start_date"`
	Distance     float64   `json:"distance"`     // meters
	ElapsedTime  int       `json:"elapsed_time"` // seconds
	HasHeartrate bool      `json:"has_heartrate"`
}

// IsRun reports whether the activity is any kind of run
func (a Activity) IsRun() bool {
	switch a.SportType {
	case "Run", "TrailRun", "VirtualRun":
		return true
	case "":
		return a.Type == "Run"
	}
	return false
}

// Filename is the session filename used for a synced activity
func (a Activity) Filename() string {
	return fmt.Sprintf("strava-%d", a.ID)
}

// Streams represents activity stream data from the API
// Strava returns streams keyed by type when key_by_type=true
type Streams struct {
	Time      *StreamData[int]        `json:"time"`
	LatLng    *StreamData[[2]float64] `json:"latlng"`
	Altitude  *StreamData[float64]    `json:"altitude"`
	Heartrate *StreamData[int]        `json:"heartrate"`
	Cadence   *StreamData[int]        `json:"cadence"`
	Distance  *StreamData[float64]    `json:"distance"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// at returns a pointer to the i-th value, nil when the stream is absent or short
func at[T any](s *StreamData[T], i int) *T {
	if s == nil || i >= len(s.Data) {
		return nil
	}
	v := s.Data[i]
	return &v
}

// Len returns the length of the stream, or 0 if nil
func (s *Streams) Len() int {
	if s == nil || s.Time == nil {
		return 0
	}
	return len(s.Time.Data)
}

// Trackpoints converts the streams into samples offset from start.
// Strava reports single-leg cadence for runs, so it is doubled.
func (s *Streams) Trackpoints(start time.Time) []store.Trackpoint {
	n := s.Len()
	points := make([]store.Trackpoint, 0, n)
	for i := 0; i < n; i++ {
		p := store.Trackpoint{
			Timestamp: start.Add(time.Duration(s.Time.Data[i]) * time.Second).UTC(),
			AltitudeM: at(s.Altitude, i),
			DistanceM: at(s.Distance, i),
		}
		if ll := at(s.LatLng, i); ll != nil {
			lat, lon := ll[0], ll[1]
			p.Lat, p.Lon = &lat, &lon
		}
		if hr := at(s.Heartrate, i); hr != nil && *hr > 0 {
			p.HeartRateBPM = hr
		}
		if cad := at(s.Cadence, i); cad != nil {
			spm := *cad * 2
			p.CadenceSPM = &spm
		}
		points = append(points, p)
	}
	return points
}

// Session builds an unprocessed session from an activity and its streams
func Session(a Activity, s *Streams) store.Session {
	points := s.Trackpoints(a.StartDate)
	start := a.StartDate.UTC()
	if len(points) > 0 {
		start = points[0].Timestamp
	}
	return store.Session{
		Filename:    a.Filename(),
		StartTime:   start,
		Trackpoints: points,
	}
}
