package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Timestamps without an offset are
// read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 date-time with or without a UTC offset
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing time %q: not an ISO-8601 timestamp", s)
}

func decodeTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	return ParseTimestamp(s)
}

// UnmarshalJSON accepts timestamps written without an offset
func (p *Trackpoint) UnmarshalJSON(data []byte) error {
	type plain Trackpoint
	aux := struct {
		*plain
		Timestamp json.RawMessage `json:"timestamp"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := decodeTimestamp(aux.Timestamp)
	if err != nil {
		return fmt.Errorf("trackpoint timestamp: %w", err)
	}
	p.Timestamp = ts
	return nil
}

// UnmarshalJSON accepts a start_time written without an offset
func (s *Session) UnmarshalJSON(data []byte) error {
	type plain Session
	aux := struct {
		*plain
		StartTime json.RawMessage `json:"start_time"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	start, err := decodeTimestamp(aux.StartTime)
	if err != nil {
		return fmt.Errorf("session %q start_time: %w", s.Filename, err)
	}
	s.StartTime = start
	return nil
}
