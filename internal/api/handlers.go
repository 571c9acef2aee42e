package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"apexrun/internal/service"
	"apexrun/internal/store"
)

// MaxUploadMemory bounds the multipart form kept in memory; larger uploads spill to disk
const MaxUploadMemory = 32 << 20

// Handler serves the history over HTTP
type Handler struct {
	history *service.History
	log     *slog.Logger
}

// NewHandler creates a handler over history
func NewHandler(history *service.History, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{history: history, log: logger}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// ListSessions returns the tabular summary
func (h *Handler) ListSessions(c *gin.Context) {
	rows, err := h.history.Summary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions": rows,
		"count":    len(rows),
	})
}

// GetSession returns one session, identified by filename and start_time (RFC 3339)
func (h *Handler) GetSession(c *gin.Context) {
	filename := c.Query("filename")
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename is required"})
		return
	}
	start, err := time.Parse(time.RFC3339Nano, c.Query("start_time"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be an RFC 3339 timestamp"})
		return
	}

	key := store.Session{Filename: filename, StartTime: start}.Key()
	detail, err := h.history.SessionDetail(c.Request.Context(), key)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ImportSessions accepts multipart workout files under "files".
// replace=true swaps the whole history for the uploaded sessions.
func (h *Handler) ImportSessions(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected a multipart form"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}
	replace, _ := strconv.ParseBool(c.DefaultQuery("replace", c.PostForm("replace")))

	uploads := make([]service.Upload, 0, len(files))
	var openErrs []string
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			openErrs = append(openErrs, fh.Filename+": "+err.Error())
			continue
		}
		uploads = append(uploads, service.Upload{Filename: fh.Filename, Body: f})
	}

	result, err := h.history.ImportUploads(c.Request.Context(), uploads, replace, nil)
	if err != nil {
		h.fail(c, err)
		return
	}

	errs := append([]string{}, openErrs...)
	for _, e := range result.Errors {
		errs = append(errs, e.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"batch_id": result.BatchID,
		"parsed":   result.Parsed,
		"added":    result.Added,
		"skipped":  result.Skipped,
		"errors":   errs,
		"sessions": result.Sessions,
	})
}

// Records returns the personal records
func (h *Handler) Records(c *gin.Context) {
	records, err := h.history.Records(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Load returns the acute/chronic load status
func (h *Handler) Load(c *gin.Context) {
	status, err := h.history.LoadStatus(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Zones returns the zone aggregate
func (h *Handler) Zones(c *gin.Context) {
	agg, err := h.history.Zones(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

// Predictions returns race predictions
func (h *Handler) Predictions(c *gin.Context) {
	data, err := h.history.Predictions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Fitness returns the CTL/ATL/TSB series
func (h *Handler) Fitness(c *gin.Context) {
	data, err := h.history.Fitness(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// Periods returns weekly or monthly totals, ?type=weekly|monthly&n=12
func (h *Handler) Periods(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("n", "12"))
	if err != nil || n <= 0 || n > 520 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n must be between 1 and 520"})
		return
	}
	stats, err := h.history.Periods(c.Request.Context(), c.DefaultQuery("type", service.Weekly), n)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comparisons, err := h.history.Comparisons(c.Request.Context(), c.DefaultQuery("type", service.Weekly))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"periods":     stats,
		"comparisons": comparisons,
	})
}

// Stats returns storage statistics
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.history.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, service.ErrNoHistory):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
