package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/screening-queue/internal/api/dto"
	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/cuongbtq/screening-queue/internal/queuelog"
	"github.com/cuongbtq/screening-queue/internal/screener"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ResetQueue handles POST /queue/reset
func (h *QueueHandler) ResetQueue(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.queue.ResetAll(ctx); err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Warn("Queue reset by screener",
		slog.String("screener", currentScreener(c).Email),
	)

	jobs, err := h.queue.ListAll(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	c.JSON(http.StatusOK, jobs)
}

// ListJobs handles GET /queue/jobs
func (h *QueueHandler) ListJobs(c *gin.Context) {
	infos, err := h.queue.ListWithPositions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if infos == nil {
		infos = []domain.JobInfo{}
	}
	c.JSON(http.StatusOK, infos)
}

// Statistics handles GET /queue/statistics
func (h *QueueHandler) Statistics(c *gin.Context) {
	stats, err := h.queue.Statistics(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ScreenerInfo handles GET /screener/info
func (h *QueueHandler) ScreenerInfo(c *gin.Context) {
	var req dto.JobInfoQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
		return
	}

	sc, err := h.screeners.Lookup(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, screener.ErrUnknownScreener) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Could not find screener."})
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sc)
}

// QueueLogs handles GET /statistics/logs
func (h *QueueHandler) QueueLogs(c *gin.Context) {
	if h.queueLog == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "queue log is disabled"})
		return
	}

	var req dto.ListQueueLogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := queuelog.DecodeCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid cursor"})
		return
	}

	entries, err := h.queueLog.List(c.Request.Context(), queuelog.Filter{
		Email:         req.Email,
		Status:        req.Status,
		ScreenerEmail: req.ScreenerEmail,
		PageSize:      req.PageSize,
		Cursor:        cursor,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	page, next := queuelog.Page(entries, req.PageSize)

	resp := dto.ListQueueLogResponse{
		Entries:    make([]dto.QueueLogEntryDTO, len(page)),
		NextCursor: next,
	}
	for i, e := range page {
		resp.Entries[i] = dto.QueueLogEntryDTO{
			ID:            e.ID,
			Email:         e.Email,
			Status:        e.Status,
			ScreenerEmail: e.ScreenerEmail,
			Job:           e.Job,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, resp)
}
