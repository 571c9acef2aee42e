package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"apexrun/internal/analysis"
	"apexrun/internal/store"
)

// ErrNoHistory is returned by queries that need at least one session
var ErrNoHistory = errors.New("no sessions in history")

// History owns the session collection. Every mutation runs to completion
// under mu, so readers never see loads computed against a stale max HR.
type History struct {
	repo    store.Repository
	athlete analysis.Athlete
	log     *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	loaded   bool
	sessions []store.Session
}

// Option configures a History
type Option func(*History)

// WithLogger sets the logger; slog.Default() is used otherwise
func WithLogger(l *slog.Logger) Option {
	return func(h *History) {
		if l != nil {
			h.log = l
		}
	}
}

// WithClock overrides the time source used by date-relative queries
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		h.now = now
	}
}

// NewHistory creates a history backed by repo
func NewHistory(repo store.Repository, athlete analysis.Athlete, opts ...Option) *History {
	h := &History{
		repo:    repo,
		athlete: athlete,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Load reads the persisted history and backfills derived fields that are
// missing. A history that cannot be read is logged and treated as empty.
func (h *History) Load(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = false
	return h.ensureLoaded(ctx)
}

// Sessions returns a copy of the collection, most recent first
func (h *History) Sessions(ctx context.Context) ([]store.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]store.Session, len(h.sessions))
	copy(out, h.sessions)
	return out, nil
}

// Clear removes every session from memory and storage
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	h.sessions = nil
	h.loaded = true
	return nil
}

// AddSessions merges already processed sessions into the collection,
// recomputes every training load and saves. With replace the existing
// collection is discarded first. It returns how many sessions were new.
func (h *History) AddSessions(ctx context.Context, incoming []store.Session, replace bool) (added int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	base := h.sessions
	if replace {
		base = nil
	}
	merged := Merge(base, incoming)
	merged = h.recomputeLoads(merged)

	if err := h.repo.SaveSessions(ctx, merged); err != nil {
		return 0, fmt.Errorf("saving history: %w", err)
	}
	h.sessions = merged
	return len(merged) - len(base), nil
}

// ensureLoaded must be called with mu held
func (h *History) ensureLoaded(ctx context.Context) error {
	if h.loaded {
		return nil
	}

	sessions, err := h.repo.LoadSessions(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h.log.Warn("history unreadable, starting empty; it is kept aside on the next save", "error", err)
		sessions = nil
	}

	// A failed save keeps the backfilled sessions; the next mutation saves
	// the whole collection again.
	sessions, changed := h.backfill(sessions)
	if changed {
		if err := h.repo.SaveSessions(ctx, sessions); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			h.log.Warn("saving backfilled history failed", "error", err)
		}
	}

	h.sessions = sessions
	h.loaded = true
	return nil
}

// backfill recomputes derived fields missing from older records
func (h *History) backfill(sessions []store.Session) ([]store.Session, bool) {
	var processed int
	needLoads := false

	for i, s := range sessions {
		if analysis.NeedsProcessing(s) && len(s.Trackpoints) > 0 {
			sessions[i] = analysis.ProcessSession(s, h.athlete)
			processed++
		}
		if sessions[i].TrainingLoad == nil {
			needLoads = true
		}
	}

	if processed == 0 && !needLoads {
		h.log.Debug("history loaded", "sessions", len(sessions))
		return sortByStartDesc(sessions), false
	}

	sessions = h.recomputeLoads(sessions)
	h.log.Info("history backfilled",
		"sessions", len(sessions),
		"reprocessed", processed,
		"global_max_hr", analysis.GlobalMaxHR(sessions),
	)
	return sortByStartDesc(sessions), true
}

func (h *History) recomputeLoads(sessions []store.Session) []store.Session {
	return analysis.RecomputeAllLoads(sessions, analysis.GlobalMaxHR(sessions), h.athlete.Sex)
}

// Merge unions two collections on (filename, start_time). The first
// occurrence of a key wins, so existing sessions are never replaced.
// The result is sorted by start time, most recent first.
func Merge(existing, incoming []store.Session) []store.Session {
	seen := make(map[store.SessionKey]bool, len(existing)+len(incoming))
	merged := make([]store.Session, 0, len(existing)+len(incoming))

	for _, group := range [][]store.Session{existing, incoming} {
		for _, s := range group {
			key := s.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, s)
		}
	}

	return sortByStartDesc(merged)
}

func sortByStartDesc(sessions []store.Session) []store.Session {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions
}
