// Package ingest turns workout files into sessions of trackpoints.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"apexrun/internal/store"
)

var (
	// ErrMalformed marks a file that could be read but holds no usable session
	ErrMalformed = errors.New("malformed workout file")
	// ErrUnsupportedFormat marks a file whose extension has no decoder
	ErrUnsupportedFormat = errors.New("unsupported workout format")
)

// cadenceMultiplier converts single-leg cadence to steps per minute
const cadenceMultiplier = 2

// Format identifies a workout file encoding
type Format string

const (
	FormatTCX Format = "tcx"
	FormatGPX Format = "gpx"
	FormatFIT Format = "fit"
)

// decoder reads every timed trackpoint from a file body
type decoder func(r io.Reader) ([]store.Trackpoint, error)

var decoders = map[Format]decoder{
	FormatTCX: decodeTCX,
	FormatGPX: decodeGPX,
	FormatFIT: decodeFIT,
}

// FormatOf picks the decoder for a filename by extension
func FormatOf(filename string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	f := Format(ext)
	if _, ok := decoders[f]; !ok {
		return "", fmt.Errorf("%s: %w", filename, ErrUnsupportedFormat)
	}
	return f, nil
}

// ParseFile reads a workout file from disk. The session keeps only the base name.
func ParseFile(path string) (store.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return store.Session{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return Parse(filepath.Base(path), f)
}

// Parse decodes a workout body into a session with no derived fields.
// The session starts at its first trackpoint.
func Parse(filename string, r io.Reader) (store.Session, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return store.Session{}, err
	}

	points, err := decoders[format](r)
	if err != nil {
		return store.Session{}, fmt.Errorf("%s: %w: %v", filename, ErrMalformed, err)
	}
	points = clean(points)
	if err := validate(points); err != nil {
		return store.Session{}, fmt.Errorf("%s: %w: %v", filename, ErrMalformed, err)
	}

	return store.Session{
		Filename:    filename,
		StartTime:   points[0].Timestamp.UTC(),
		Trackpoints: points,
	}, nil
}

func validate(points []store.Trackpoint) error {
	if len(points) == 0 {
		return errors.New("no timed trackpoints")
	}
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp.Before(points[i-1].Timestamp) {
			return fmt.Errorf("timestamp goes backwards at trackpoint %d", i)
		}
	}
	return nil
}

// clean drops sensor values that cannot be real: non-finite coordinates,
// altitude or distance, and heart rate or cadence at or below zero.
// A position loses both coordinates when either is unusable.
func clean(points []store.Trackpoint) []store.Trackpoint {
	for i := range points {
		p := &points[i]
		if !finite(p.Lat) || !finite(p.Lon) {
			p.Lat, p.Lon = nil, nil
		}
		if !finite(p.AltitudeM) {
			p.AltitudeM = nil
		}
		if !finite(p.DistanceM) {
			p.DistanceM = nil
		}
		if p.HeartRateBPM != nil && *p.HeartRateBPM <= 0 {
			p.HeartRateBPM = nil
		}
		if p.CadenceSPM != nil && *p.CadenceSPM < 0 {
			p.CadenceSPM = nil
		}
	}
	return points
}

// finite reports false for a present NaN or ±Inf
func finite(v *float64) bool {
	return v == nil || !(math.IsNaN(*v) || math.IsInf(*v, 0))
}

func doubledCadence(v int) *int {
	spm := v * cadenceMultiplier
	return &spm
}
