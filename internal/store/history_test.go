package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "history.json"))

	sessions, err := fs.LoadSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)

	stats, err := fs.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StorageStats{}, stats)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(filepath.Join(t.TempDir(), "nested", "history.json"))

	want := []Session{
		testSession("b.tcx", time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)),
		testSession("a.tcx", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, fs.SaveSessions(ctx, want))

	got, err := fs.LoadSessions(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	stats, err := fs.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Positive(t, stats.SizeBytes)
	assert.True(t, stats.Earliest.Equal(want[1].StartTime))
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path).LoadSessions(context.Background())
	assert.ErrorIs(t, err, ErrCorruptHistory)
}

func TestFileStoreLegacyRecordDecodesAsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	legacy := `[{"filename":"old.tcx","start_time":"2023-05-01T08:00:00Z",
		"trackpoints":[{"timestamp":"2023-05-01T08:00:00Z","heart_rate_bpm":140}],
		"metrics":{"distance_km":5,"distance_meters":5000,"duration_minutes":25,"pace_min_per_km":5}}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	sessions, err := NewFileStore(path).LoadSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	require.NotNil(t, s.Metrics)
	assert.Nil(t, s.Metrics.BestEfforts)
	assert.Nil(t, s.Metrics.AvgHeartRate)
	assert.Nil(t, s.TrainingLoad)
	assert.Nil(t, s.HRZones)
	assert.Equal(t, 140, *s.Trackpoints[0].HeartRateBPM)
}

func TestFileStoreClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	fs := NewFileStore(path)

	require.NoError(t, fs.SaveSessions(ctx, []Session{testSession("a.tcx", time.Now().UTC())}))
	require.NoError(t, fs.Clear(ctx))
	require.NoError(t, fs.Clear(ctx))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenRepository(t *testing.T) {
	dir := t.TempDir()

	repo, err := OpenRepository(DriverJSON, filepath.Join(dir, "history.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, repo)

	repo, err = OpenRepository(DriverSQLite, filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	assert.IsType(t, &DB{}, repo)
	require.NoError(t, repo.Close())

	_, err = OpenRepository("postgres", "x")
	assert.Error(t, err)
}

func TestFileStoreTimestampsWithoutOffset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	naive := `[{"filename":"naive.gpx","start_time":"2024-06-01T08:00:00",
		"trackpoints":[{"timestamp":"2024-06-01T08:00:00"},{"timestamp":"2024-06-01T08:00:01.500000"}]}]`
	require.NoError(t, os.WriteFile(path, []byte(naive), 0644))
	fs := NewFileStore(path)

	sessions, err := fs.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	s := sessions[0]
	assert.True(t, s.StartTime.Equal(start), "read as UTC, got %v", s.StartTime)
	require.Len(t, s.Trackpoints, 2)
	assert.True(t, s.Trackpoints[1].Timestamp.Equal(start.Add(1500*time.Millisecond)))
	assert.Equal(t, SessionKey{Filename: "naive.gpx", StartTime: "2024-06-01T08:00:00Z"}, s.Key())

	// saving writes RFC 3339 and reads back the same session
	require.NoError(t, fs.SaveSessions(ctx, sessions))
	again, err := fs.LoadSessions(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(sessions, again); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	_, err = os.Stat(fs.BackupPath())
	assert.True(t, os.IsNotExist(err), "a readable history is never moved aside")
}

func TestFileStoreCorruptIsKeptAside(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	fs := NewFileStore(path)

	_, err := fs.LoadSessions(ctx)
	require.ErrorIs(t, err, ErrCorruptHistory)

	require.NoError(t, fs.SaveSessions(ctx, []Session{testSession("new.tcx", time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))}))

	kept, err := os.ReadFile(fs.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(kept))

	sessions, err := fs.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	// later saves leave the backup alone
	require.NoError(t, fs.SaveSessions(ctx, nil))
	kept, err = os.ReadFile(fs.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(kept))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-06-01T08:00:00Z", want},
		{"2024-06-01T10:00:00+02:00", want},
		{"2024-06-01T08:00:00", want},
		{"2024-06-01 08:00:00", want},
		{"2024-06-01T08:00:00.250000", want.Add(250 * time.Millisecond)},
		{" 2024-06-01 08:00:00+00:00 ", want},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseTimestamp("June 1st")
	assert.Error(t, err)
}
