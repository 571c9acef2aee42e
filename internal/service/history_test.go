package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexrun/internal/analysis"
	"apexrun/internal/store"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// makeRun builds n samples one second apart at a constant speed with device distances
func makeRun(start time.Time, n int, speed float64, hr int) []store.Trackpoint {
	points := make([]store.Trackpoint, n)
	for i := range points {
		d := float64(i) * speed
		points[i] = store.Trackpoint{
			Timestamp: start.Add(time.Duration(i) * time.Second),
			DistanceM: &d,
		}
		if hr > 0 {
			v := hr
			points[i].HeartRateBPM = &v
		}
	}
	return points
}

// rawSession is a session as ingestion produces it, with no derived fields
func rawSession(name string, start time.Time, n int, hr int) store.Session {
	return store.Session{
		Filename:    name,
		StartTime:   start,
		Trackpoints: makeRun(start, n, 3, hr),
	}
}

// tcxDoc renders n one-second trackpoints at 3 m/s
func tcxDoc(start time.Time, n, hr int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase xmlns="http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2">
<Activities><Activity Sport="Running"><Lap><Track>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<Trackpoint><Time>%s</Time><DistanceMeters>%d</DistanceMeters><HeartRateBpm><Value>%d</Value></HeartRateBpm></Trackpoint>`,
			start.Add(time.Duration(i)*time.Second).Format(time.RFC3339), i*3, hr)
	}
	b.WriteString(`</Track></Lap></Activity></Activities></TrainingCenterDatabase>`)
	return b.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestHistory(t *testing.T, repo store.Repository) *History {
	t.Helper()
	return NewHistory(repo, analysis.Athlete{Sex: analysis.SexMale},
		WithLogger(quietLog),
		WithClock(func() time.Time { return testNow }),
	)
}

func fileRepo(t *testing.T) *store.FileStore {
	t.Helper()
	return store.NewFileStore(filepath.Join(t.TempDir(), "history.json"))
}

func TestMerge(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 6, d, 8, 0, 0, 0, time.UTC) }

	existing := []store.Session{
		{Filename: "a.tcx", StartTime: day(1), SessionType: store.SessionEasy},
		{Filename: "b.tcx", StartTime: day(3)},
	}
	incoming := []store.Session{
		{Filename: "a.tcx", StartTime: day(1), SessionType: store.SessionRace}, // duplicate
		{Filename: "a.tcx", StartTime: day(2)},                                 // same name, other time
		{Filename: "c.tcx", StartTime: day(5)},
		{Filename: "c.tcx", StartTime: day(5)}, // duplicate inside the batch
	}

	merged := Merge(existing, incoming)

	require.Len(t, merged, 4)
	var names []string
	for _, s := range merged {
		names = append(names, s.Filename+"@"+s.StartTime.Format("02"))
	}
	assert.Equal(t, []string{"c.tcx@05", "b.tcx@03", "a.tcx@02", "a.tcx@01"}, names)
	assert.Equal(t, store.SessionEasy, merged[3].SessionType, "existing wins")

	again := Merge(merged, incoming)
	assert.Equal(t, merged, again, "merge is idempotent")

	assert.Empty(t, Merge(nil, nil))
}

func TestHistoryLoadBackfills(t *testing.T) {
	ctx := context.Background()
	repo := fileRepo(t)

	start := testNow.AddDate(0, 0, -2)
	legacy := rawSession("legacy.tcx", start, 1201, 150)
	require.NoError(t, repo.SaveSessions(ctx, []store.Session{legacy}))

	h := newTestHistory(t, repo)
	sessions, err := h.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	require.NotNil(t, s.Metrics)
	assert.InDelta(t, 3.6, s.Metrics.DistanceKm, 1e-9)
	assert.NotNil(t, s.Metrics.BestEfforts)
	assert.NotEmpty(t, s.SessionType)
	assert.NotNil(t, s.HRZones)
	require.NotNil(t, s.TrainingLoad)
	assert.Positive(t, s.TrainingLoad.TRIMP)

	// the backfill was written back
	stored, err := repo.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotNil(t, stored[0].Metrics)
	assert.NotNil(t, stored[0].TrainingLoad)
}

func TestHistoryLoadMissingTrainingLoadOnly(t *testing.T) {
	ctx := context.Background()
	repo := fileRepo(t)

	processed := analysis.ProcessSession(rawSession("run.tcx", testNow.AddDate(0, 0, -1), 601, 160), analysis.Athlete{})
	require.Nil(t, processed.TrainingLoad)
	require.NoError(t, repo.SaveSessions(ctx, []store.Session{processed}))

	sessions, err := newTestHistory(t, repo).Sessions(ctx)
	require.NoError(t, err)
	require.NotNil(t, sessions[0].TrainingLoad)
	// observed peak 160 + 5 = 165 is implausible, so the global max falls back to 185
	assert.InDelta(t, 160.0/185.0, sessions[0].TrainingLoad.IntensityFactor, 1e-9)
}

func TestHistoryLoadCorruptIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"filename": `), 0o644))

	repo := store.NewFileStore(path)
	h := newTestHistory(t, repo)
	sessions, err := h.Sessions(context.Background())

	require.NoError(t, err)
	assert.Empty(t, sessions)

	// the unreadable file is kept aside, not overwritten
	run := analysis.ProcessSession(rawSession("new.tcx", testNow.AddDate(0, 0, -1), 61, 0), analysis.Athlete{})
	_, err = h.AddSessions(context.Background(), []store.Session{run}, false)
	require.NoError(t, err)

	kept, err := os.ReadFile(repo.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, `[{"filename": `, string(kept))
}

func TestHistoryLoadNaiveTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	var b strings.Builder
	b.WriteString(`[{"filename":"naive.tcx","start_time":"2024-06-10T07:00:00","trackpoints":[`)
	for i := 0; i < 301; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"timestamp":"2024-06-10T07:%02d:%02d","distance_m":%d,"heart_rate_bpm":150}`, i/60, i%60, i*3)
	}
	b.WriteString(`]}]`)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	h := newTestHistory(t, store.NewFileStore(path))
	sessions, err := h.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s := sessions[0]
	assert.True(t, s.StartTime.Equal(time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC)))
	require.NotNil(t, s.Metrics, "backfilled from trackpoints")
	assert.InDelta(t, 0.9, s.Metrics.DistanceKm, 1e-9)
	assert.NotNil(t, s.TrainingLoad)
}

// failingSaves is a repository whose saves fail until enabled
type failingSaves struct {
	store.Repository
	allow bool
}

func (f *failingSaves) SaveSessions(ctx context.Context, sessions []store.Session) error {
	if !f.allow {
		return errors.New("disk full")
	}
	return f.Repository.SaveSessions(ctx, sessions)
}

func TestHistoryBackfillSaveFailureKeepsSessions(t *testing.T) {
	ctx := context.Background()
	files := fileRepo(t)
	legacy := rawSession("legacy.tcx", testNow.AddDate(0, 0, -2), 601, 150)
	require.NoError(t, files.SaveSessions(ctx, []store.Session{legacy}))

	repo := &failingSaves{Repository: files}
	h := newTestHistory(t, repo)

	sessions, err := h.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.NotNil(t, sessions[0].Metrics)
	assert.NotNil(t, sessions[0].TrainingLoad)

	status, err := h.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.AcuteSessions)

	// the next mutation persists the backfilled collection
	repo.allow = true
	run := analysis.ProcessSession(rawSession("new.tcx", testNow.AddDate(0, 0, -1), 61, 0), analysis.Athlete{})
	_, err = h.AddSessions(ctx, []store.Session{run}, false)
	require.NoError(t, err)

	stored, err := files.LoadSessions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, s := range stored {
		assert.NotNil(t, s.Metrics, s.Filename)
		assert.NotNil(t, s.TrainingLoad, s.Filename)
	}
}

func TestAddSessionsRecomputesAllLoads(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t, fileRepo(t))
	athlete := analysis.Athlete{}

	first := analysis.ProcessSession(rawSession("low.tcx", testNow.AddDate(0, 0, -3), 601, 150), athlete)
	added, err := h.AddSessions(ctx, []store.Session{first}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	sessions, err := h.Sessions(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 150.0/185.0, sessions[0].TrainingLoad.IntensityFactor, 1e-9)

	// a harder session raises the global max, which changes the earlier load too
	second := analysis.ProcessSession(rawSession("high.tcx", testNow.AddDate(0, 0, -1), 601, 190), athlete)
	added, err = h.AddSessions(ctx, []store.Session{second, first}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	sessions, err = h.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "high.tcx", sessions[0].Filename)
	assert.InDelta(t, 150.0/195.0, sessions[1].TrainingLoad.IntensityFactor, 1e-9)
}

func TestAddSessionsReplace(t *testing.T) {
	ctx := context.Background()
	h := newTestHistory(t, fileRepo(t))

	old := analysis.ProcessSession(rawSession("old.tcx", testNow.AddDate(0, 0, -9), 301, 0), analysis.Athlete{})
	_, err := h.AddSessions(ctx, []store.Session{old}, false)
	require.NoError(t, err)

	fresh := analysis.ProcessSession(rawSession("new.tcx", testNow.AddDate(0, 0, -1), 301, 0), analysis.Athlete{})
	added, err := h.AddSessions(ctx, []store.Session{fresh}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	sessions, err := h.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "new.tcx", sessions[0].Filename)
	assert.NotNil(t, sessions[0].TrainingLoad)
}

func TestHistoryOnSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := newTestHistory(t, db)
	s := analysis.ProcessSession(rawSession("db.tcx", testNow.AddDate(0, 0, -1), 401, 155), analysis.Athlete{})
	_, err = h.AddSessions(ctx, []store.Session{s}, false)
	require.NoError(t, err)

	reloaded := newTestHistory(t, db)
	sessions, err := reloaded.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Trackpoints, 401)
	assert.NotNil(t, sessions[0].TrainingLoad)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	repo := fileRepo(t)
	h := newTestHistory(t, repo)

	s := analysis.ProcessSession(rawSession("x.tcx", testNow, 101, 0), analysis.Athlete{})
	_, err := h.AddSessions(ctx, []store.Session{s}, false)
	require.NoError(t, err)

	require.NoError(t, h.Clear(ctx))

	sessions, err := h.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
	_, err = os.Stat(repo.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
