package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"apexrun/internal/analysis"
	"apexrun/internal/ingest"
	"apexrun/internal/store"
)

// ImportProgress reports progress during an import batch
type ImportProgress struct {
	BatchID   string
	Total     int
	Completed int
	Current   string
}

// ImportResult contains the results of an import batch
type ImportResult struct {
	BatchID  string
	Parsed   int
	Added    int
	Skipped  int // duplicates of sessions already in history
	Errors   []error
	Sessions []store.SummaryRow // the sessions this batch parsed
}

// Upload is a workout file received in memory
type Upload struct {
	Filename string
	Body     io.ReadCloser
}

type importSource struct {
	name string
	open func() (io.ReadCloser, error)
}

// ImportFiles parses workout files from disk and merges them into the history.
// Files that fail to parse are reported in Errors and do not stop the batch.
func (h *History) ImportFiles(ctx context.Context, paths []string, replace bool, progress chan<- ImportProgress) (*ImportResult, error) {
	sources := make([]importSource, len(paths))
	for i, p := range paths {
		sources[i] = importSource{
			name: filepath.Base(p),
			open: func() (io.ReadCloser, error) { return os.Open(p) },
		}
	}
	return h.importBatch(ctx, sources, replace, progress)
}

// ImportUploads is ImportFiles for in-memory files. Bodies are closed.
func (h *History) ImportUploads(ctx context.Context, uploads []Upload, replace bool, progress chan<- ImportProgress) (*ImportResult, error) {
	sources := make([]importSource, len(uploads))
	for i, u := range uploads {
		sources[i] = importSource{
			name: filepath.Base(u.Filename),
			open: func() (io.ReadCloser, error) { return u.Body, nil },
		}
	}
	return h.importBatch(ctx, sources, replace, progress)
}

func (h *History) importBatch(ctx context.Context, sources []importSource, replace bool, progress chan<- ImportProgress) (*ImportResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &ImportResult{BatchID: uuid.NewString()}
	log := h.log.With("batch", result.BatchID)

	var incoming []store.Session
	for i, src := range sources {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if progress != nil {
			progress <- ImportProgress{
				BatchID:   result.BatchID,
				Total:     len(sources),
				Completed: i,
				Current:   src.name,
			}
		}

		s, err := parseSource(src)
		if err != nil {
			log.Warn("skipping file", "file", src.name, "error", err)
			result.Errors = append(result.Errors, err)
			continue
		}

		s = analysis.ProcessSession(s, h.athlete)
		incoming = append(incoming, s)
		result.Sessions = append(result.Sessions, SummaryRow(s))
	}
	result.Parsed = len(incoming)

	added, err := h.AddSessions(ctx, incoming, replace)
	if err != nil {
		return result, fmt.Errorf("merging batch: %w", err)
	}
	result.Added = added
	result.Skipped = result.Parsed - added
	if result.Skipped < 0 {
		result.Skipped = 0
	}

	if progress != nil {
		progress <- ImportProgress{
			BatchID:   result.BatchID,
			Total:     len(sources),
			Completed: len(sources),
		}
	}

	log.Info("import finished",
		"files", len(sources),
		"added", result.Added,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"replace", replace,
	)
	return result, nil
}

func parseSource(src importSource) (store.Session, error) {
	r, err := src.open()
	if err != nil {
		return store.Session{}, fmt.Errorf("opening %s: %w", src.name, err)
	}
	defer r.Close()
	return ingest.Parse(src.name, r)
}
