// Package api exposes runs, keyword history and schedule previews over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
	"ReviewPublisher/internal/schedule"
	"ReviewPublisher/internal/usecase"
)

const (
	defaultPreviewCount = 10
	maxPreviewCount     = 500
)

// RunController is the slice of the batch runner the API drives.
type RunController interface {
	Start(ctx context.Context, req usecase.BatchRequest) (usecase.RunSnapshot, error)
	Stop()
	Reset() error
	Snapshot() usecase.RunSnapshot
}

var _ RunController = (*usecase.Runner)(nil)

// Deps wires the handler's collaborators. History may be nil when no
// database is configured.
type Deps struct {
	Runs     RunController
	History  ports.HistoryRepository
	Defaults usecase.BatchRequest
	Metrics  http.Handler
	Logger   *slog.Logger
	Now      func() time.Time
}

// Handler serves the HTTP surface.
type Handler struct {
	runs     RunController
	history  ports.HistoryRepository
	defaults usecase.BatchRequest
	metrics  http.Handler
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler builds a handler from deps.
func NewHandler(deps Deps) *Handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		runs:     deps.Runs,
		history:  deps.History,
		defaults: deps.Defaults,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      now,
	}
}

type startRunRequest struct {
	Keywords     []string                `json:"keywords"`
	Model        domain.AIModel          `json:"model"`
	ProductCount int                     `json:"productCount"`
	Publish      *domain.PublishSettings `json:"publish"`
}

type keywordsRequest struct {
	Keywords []string `json:"keywords"`
}

// StartRun handles POST /api/v1/runs.
func (h *Handler) StartRun(c *gin.Context) {
	var body startRunRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := h.defaults
	req.Keywords = body.Keywords
	if body.Model != "" {
		if !body.Model.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown model " + string(body.Model)})
			return
		}
		req.Model = body.Model
	}
	if body.ProductCount > 0 {
		req.ProductCount = body.ProductCount
	}
	if body.Publish != nil {
		if err := body.Publish.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Settings = *body.Publish
	}

	snap, err := h.runs.Start(c.Request.Context(), req)
	switch {
	case errors.Is(err, usecase.ErrNoKeywords):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, usecase.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.log().Error("start run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, snap)
}

// CurrentRun handles GET /api/v1/runs/current.
func (h *Handler) CurrentRun(c *gin.Context) {
	c.JSON(http.StatusOK, h.runs.Snapshot())
}

// StopRun handles POST /api/v1/runs/stop.
func (h *Handler) StopRun(c *gin.Context) {
	h.runs.Stop()
	c.JSON(http.StatusAccepted, h.runs.Snapshot())
}

// ResetRun handles POST /api/v1/runs/reset.
func (h *Handler) ResetRun(c *gin.Context) {
	if err := h.runs.Reset(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.runs.Snapshot())
}

// ListHistory handles GET /api/v1/history?q=&limit=.
func (h *Handler) ListHistory(c *gin.Context) {
	if !h.requireHistory(c) {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := h.history.List(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.internalError(c, "list history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// FindDuplicates handles POST /api/v1/history/duplicates.
func (h *Handler) FindDuplicates(c *gin.Context) {
	if !h.requireHistory(c) {
		return
	}

	var body keywordsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dups, err := h.history.FindDuplicates(c.Request.Context(), body.Keywords)
	if err != nil {
		h.internalError(c, "find duplicates", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicates": dups})
}

// DeleteHistoryEntry handles DELETE /api/v1/history/:id.
func (h *Handler) DeleteHistoryEntry(c *gin.Context) {
	if !h.requireHistory(c) {
		return
	}

	removed, err := h.history.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internalError(c, "delete history entry", err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "history entry not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearHistory handles DELETE /api/v1/history.
func (h *Handler) ClearHistory(c *gin.Context) {
	if !h.requireHistory(c) {
		return
	}

	if err := h.history.Clear(c.Request.Context()); err != nil {
		h.internalError(c, "clear history", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PreviewSchedule handles GET /api/v1/schedule/preview?count=N.
func (h *Handler) PreviewSchedule(c *gin.Context) {
	count := defaultPreviewCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPreviewCount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be between 1 and " + strconv.Itoa(maxPreviewCount)})
			return
		}
		count = n
	}

	settings := h.defaults.Settings
	slots := schedule.GenerateSlots(count, settings, h.now())
	c.JSON(http.StatusOK, gin.H{
		"settings": settings,
		"slots":    slots,
		"summary":  schedule.Summarize(slots, settings),
	})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"run":    h.runs.Snapshot().State.Status,
	})
}

func (h *Handler) requireHistory(c *gin.Context) bool {
	if h.history != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "keyword history is not configured"})
	return false
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.log().Error(op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (h *Handler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.New(slog.DiscardHandler)
}
