package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// LoadSessions returns the stored history, most recent first.
// Derived columns that are NULL come back as nil so callers can backfill them.
func (db *DB) LoadSessions(ctx context.Context) ([]Session, error) {
	points, err := db.loadTrackpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading trackpoints: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, filename, start_time, session_type, max_hr_estimated,
			metrics, hr_zones, training_load
		FROM sessions
	`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			id, startTime                string
			s                            Session
			sessionType                  sql.NullString
			maxHR                        sql.NullFloat64
			metrics, zones, trainingLoad sql.NullString
		)
		if err := rows.Scan(&id, &s.Filename, &startTime, &sessionType, &maxHR,
			&metrics, &zones, &trainingLoad); err != nil {
			return nil, err
		}

		if s.StartTime, err = parseTime(startTime); err != nil {
			return nil, fmt.Errorf("%w: bad start_time %q", ErrCorruptHistory, startTime)
		}
		s.Trackpoints = points[id]
		s.SessionType = SessionType(sessionType.String)
		if maxHR.Valid {
			v := maxHR.Float64
			s.MaxHREstimated = &v
		}
		if err := decodeColumn(metrics, &s.Metrics); err != nil {
			return nil, err
		}
		if err := decodeColumn(zones, &s.HRZones); err != nil {
			return nil, err
		}
		if err := decodeColumn(trainingLoad, &s.TrainingLoad); err != nil {
			return nil, err
		}

		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})

	return sessions, nil
}

// SaveSessions makes the stored history equal to sessions.
// Existing rows keep their id and trackpoints; only derived columns are rewritten.
// Rows whose (filename, start_time) is absent from sessions are deleted.
func (db *DB) SaveSessions(ctx context.Context, sessions []Session) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := sessionIDs(ctx, tx)
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		metrics, zones, trainingLoad, err := encodeDerived(s)
		if err != nil {
			return fmt.Errorf("encoding session %s: %w", s.Filename, err)
		}

		id, ok := existing[s.Key()]
		if ok {
			_, err = tx.ExecContext(ctx, `
				UPDATE sessions SET
					session_type = ?, max_hr_estimated = ?, metrics = ?,
					hr_zones = ?, training_load = ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ?
			`, nullString(string(s.SessionType)), s.MaxHREstimated, metrics, zones, trainingLoad, id)
			if err != nil {
				return fmt.Errorf("updating session %s: %w", s.Filename, err)
			}
		} else {
			id = uuid.NewString()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO sessions (
					id, filename, start_time, session_type, max_hr_estimated,
					metrics, hr_zones, training_load
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, id, s.Filename, formatTime(s.StartTime), nullString(string(s.SessionType)),
				s.MaxHREstimated, metrics, zones, trainingLoad)
			if err != nil {
				return fmt.Errorf("inserting session %s: %w", s.Filename, err)
			}
			if err := insertTrackpoints(ctx, tx, id, s.Trackpoints); err != nil {
				return err
			}
			existing[s.Key()] = id
		}
		keep[id] = true
	}

	for _, id := range existing {
		if keep[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM trackpoints WHERE session_id = ?", id); err != nil {
			return fmt.Errorf("deleting trackpoints: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetSession returns a single stored session by its identity
func (db *DB) GetSession(ctx context.Context, key SessionKey) (*Session, error) {
	sessions, err := db.LoadSessions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].Key() == key {
			return &sessions[i], nil
		}
	}
	return nil, ErrSessionNotFound
}

func sessionIDs(ctx context.Context, tx *sql.Tx) (map[SessionKey]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, filename, start_time FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("querying session ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[SessionKey]string)
	for rows.Next() {
		var id, filename, startTime string
		if err := rows.Scan(&id, &filename, &startTime); err != nil {
			return nil, err
		}
		t, err := parseTime(startTime)
		if err != nil {
			return nil, fmt.Errorf("%w: bad start_time %q", ErrCorruptHistory, startTime)
		}
		ids[Session{Filename: filename, StartTime: t}.Key()] = id
	}
	return ids, rows.Err()
}

func encodeDerived(s Session) (metrics, zones, trainingLoad sql.NullString, err error) {
	if s.Metrics != nil {
		if metrics, err = encodeColumn(s.Metrics); err != nil {
			return
		}
	}
	if s.HRZones != nil {
		if zones, err = encodeColumn(s.HRZones); err != nil {
			return
		}
	}
	if s.TrainingLoad != nil {
		trainingLoad, err = encodeColumn(s.TrainingLoad)
	}
	return
}

func encodeColumn(v any) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeColumn(col sql.NullString, dst any) error {
	if !col.Valid {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
