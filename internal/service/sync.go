package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"apexrun/internal/analysis"
	"apexrun/internal/store"
	"apexrun/internal/strava"
)

// ActivitySource is the part of the Strava client the sync needs
type ActivitySource interface {
	GetAllActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]strava.Activity, error)
	GetActivityStreams(ctx context.Context, activityID int64) (*strava.Streams, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// SyncService orchestrates syncing runs from Strava into the history
type SyncService struct {
	client  ActivitySource
	history *History
	log     *slog.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(client ActivitySource, history *History, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{client: client, history: history, log: logger}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase           string // "activities", "streams", "merge"
	Total           int
	Completed       int
	CurrentActivity string
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	BatchID           string
	ActivitiesFetched int
	RunsFound         int
	StreamsFetched    int
	Added             int
	Errors            []error
}

// SyncAll fetches runs newer than the latest synced session, downloads
// their streams and merges them into the history. Per-activity failures
// are collected in Errors.
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{BatchID: uuid.NewString()}
	log := s.log.With("batch", result.BatchID)

	sessions, err := s.history.Sessions(ctx)
	if err != nil {
		return result, fmt.Errorf("loading history: %w", err)
	}
	after, synced := syncedActivities(sessions)

	// Phase 1: activity summaries
	send(progress, SyncProgress{Phase: "activities"})
	activities, err := s.client.GetAllActivities(ctx, after, func(fetched int) {
		send(progress, SyncProgress{Phase: "activities", Total: fetched, Completed: fetched})
	})
	if err != nil {
		return result, fmt.Errorf("syncing activities: %w", err)
	}
	result.ActivitiesFetched = len(activities)

	var runs []strava.Activity
	for _, a := range activities {
		if a.IsRun() && !synced[a.Filename()] {
			runs = append(runs, a)
		}
	}
	result.RunsFound = len(runs)

	// Phase 2: streams
	var incoming []store.Session
	for i, a := range runs {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		send(progress, SyncProgress{
			Phase:           "streams",
			Total:           len(runs),
			Completed:       i,
			CurrentActivity: a.Name,
		})

		streams, err := s.client.GetActivityStreams(ctx, a.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s): %w", a.ID, a.Name, err))
			continue
		}
		if streams.Len() == 0 {
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s): no streams", a.ID, a.Name))
			continue
		}
		result.StreamsFetched++

		session := analysis.ProcessSession(strava.Session(a, streams), s.history.athlete)
		incoming = append(incoming, session)
	}

	// Phase 3: merge
	send(progress, SyncProgress{Phase: "merge", Total: len(incoming)})
	added, err := s.history.AddSessions(ctx, incoming, false)
	if err != nil {
		return result, fmt.Errorf("merging synced runs: %w", err)
	}
	result.Added = added
	send(progress, SyncProgress{Phase: "merge", Total: len(incoming), Completed: len(incoming)})

	short, daily := s.client.RateLimitStatus()
	log.Info("strava sync finished",
		"fetched", result.ActivitiesFetched,
		"runs", result.RunsFound,
		"added", result.Added,
		"errors", len(result.Errors),
		"rate_short_remaining", short,
		"rate_daily_remaining", daily,
	)
	return result, nil
}

// RateLimitStatus returns the current rate limit status from the client
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}

// syncedActivities returns the start of the newest synced session, which
// bounds the next fetch, and the filenames already in the history
func syncedActivities(sessions []store.Session) (time.Time, map[string]bool) {
	var after time.Time
	synced := make(map[string]bool)
	for _, s := range sessions {
		if !strings.HasPrefix(s.Filename, "strava-") {
			continue
		}
		synced[s.Filename] = true
		if s.StartTime.After(after) {
			after = s.StartTime
		}
	}
	return after, synced
}

func send(progress chan<- SyncProgress, p SyncProgress) {
	if progress != nil {
		progress <- p
	}
}
