package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when a session doesn't exist
var ErrSessionNotFound = errors.New("session not found")

// ErrCorruptHistory is returned when persisted history cannot be decoded
var ErrCorruptHistory = errors.New("history is corrupt")

// DB is the SQLite-backed session history
type DB struct {
	*sql.DB
}

// Open opens the SQLite database at path, creating it if necessary,
// and brings the schema up to date.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// Stats returns the session count, the covered date range and the database size
func (db *DB) Stats(ctx context.Context) (StorageStats, error) {
	var stats StorageStats

	rows, err := db.QueryContext(ctx, `SELECT start_time FROM sessions`)
	if err != nil {
		return stats, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return stats, err
		}
		t, err := parseTime(raw)
		if err != nil {
			return stats, fmt.Errorf("%w: bad start_time %q", ErrCorruptHistory, raw)
		}
		stats.TotalSessions++
		stats.Earliest, stats.Latest = widenRange(stats.Earliest, stats.Latest, t)
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	var pageCount, pageSize int64
	if err := db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return stats, fmt.Errorf("reading page count: %w", err)
	}
	if err := db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return stats, fmt.Errorf("reading page size: %w", err)
	}
	stats.SizeBytes = pageCount * pageSize

	return stats, nil
}

// Clear removes every stored session
func (db *DB) Clear(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM trackpoints"); err != nil {
		return fmt.Errorf("deleting trackpoints: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions"); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}

	return tx.Commit()
}
