package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps the whole history as one JSON array on disk.
// A file that fails to decode is moved aside to <path>.corrupt before the
// next save replaces it.
type FileStore struct {
	path string

	mu      sync.Mutex
	corrupt bool
}

// NewFileStore returns a FileStore backed by the file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the history file location
func (f *FileStore) Path() string {
	return f.path
}

// LoadSessions reads the history file. A missing or empty file is an empty history.
// Undecodable content is reported as ErrCorruptHistory.
func (f *FileStore) LoadSessions(ctx context.Context) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		f.mu.Lock()
		f.corrupt = true
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	return sessions, nil
}

// SaveSessions replaces the history file. The write goes to a temporary
// file in the same directory which is then renamed over the old one.
func (f *FileStore) SaveSessions(ctx context.Context, sessions []Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sessions == nil {
		sessions = []Session{}
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing history: %w", err)
	}
	if err := f.preserveCorrupt(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing history file: %w", err)
	}

	return nil
}

// BackupPath is where an undecodable history is kept
func (f *FileStore) BackupPath() string {
	return f.path + ".corrupt"
}

// preserveCorrupt moves a history file that failed to decode out of the way
func (f *FileStore) preserveCorrupt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.corrupt {
		return nil
	}

	backup := f.BackupPath()
	if _, err := os.Stat(backup); err == nil {
		backup = fmt.Sprintf("%s-%s", backup, time.Now().UTC().Format("20060102T150405.000000000"))
	}
	if err := os.Rename(f.path, backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("moving corrupt history aside: %w", err)
	}
	f.corrupt = false
	return nil
}

// Clear deletes the history file
func (f *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing history file: %w", err)
	}
	f.mu.Lock()
	f.corrupt = false
	f.mu.Unlock()
	return nil
}

// Stats reports the file size, session count and date range
func (f *FileStore) Stats(ctx context.Context) (StorageStats, error) {
	var stats StorageStats

	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("stat history file: %w", err)
	}
	stats.SizeBytes = info.Size()

	sessions, err := f.LoadSessions(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalSessions = len(sessions)
	for _, s := range sessions {
		stats.Earliest, stats.Latest = widenRange(stats.Earliest, stats.Latest, s.StartTime)
	}

	return stats, nil
}

// Close is a no-op; FileStore holds no open handles
func (f *FileStore) Close() error {
	return nil
}

func widenRange(earliest, latest *time.Time, t time.Time) (*time.Time, *time.Time) {
	if earliest == nil || t.Before(*earliest) {
		earliest = &t
	}
	if latest == nil || t.After(*latest) {
		latest = &t
	}
	return earliest, latest
}
