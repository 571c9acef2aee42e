package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// insertTrackpoints writes the samples of one session inside tx.
// Any existing samples for the session are replaced.
func insertTrackpoints(ctx context.Context, tx *sql.Tx, sessionID string, points []Trackpoint) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM trackpoints WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("deleting existing trackpoints: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trackpoints (
			session_id, seq, timestamp, lat, lon, altitude_m,
			heart_rate_bpm, cadence_spm, distance_m
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		_, err := stmt.ExecContext(ctx,
			sessionID, i, formatTime(p.Timestamp), p.Lat, p.Lon, p.AltitudeM,
			p.HeartRateBPM, p.CadenceSPM, p.DistanceM,
		)
		if err != nil {
			return fmt.Errorf("inserting trackpoint %d: %w", i, err)
		}
	}

	return nil
}

// loadTrackpoints returns every stored sample grouped by session id, in recording order
func (db *DB) loadTrackpoints(ctx context.Context) (map[string][]Trackpoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT session_id, timestamp, lat, lon, altitude_m,
			heart_rate_bpm, cadence_spm, distance_m
		FROM trackpoints
		ORDER BY session_id, seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bySession := make(map[string][]Trackpoint)
	for rows.Next() {
		var (
			sessionID string
			ts        string
			p         Trackpoint
		)
		err := rows.Scan(
			&sessionID, &ts, &p.Lat, &p.Lon, &p.AltitudeM,
			&p.HeartRateBPM, &p.CadenceSPM, &p.DistanceM,
		)
		if err != nil {
			return nil, err
		}
		if p.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("%w: bad trackpoint timestamp %q", ErrCorruptHistory, ts)
		}
		bySession[sessionID] = append(bySession[sessionID], p)
	}

	return bySession, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return ParseTimestamp(s)
}
