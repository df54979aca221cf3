package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/screening-queue/internal/api/dto"
	"github.com/cuongbtq/screening-queue/internal/queue"
	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/cuongbtq/screening-queue/internal/queuelog"
	"github.com/cuongbtq/screening-queue/internal/screener"
	"github.com/cuongbtq/screening-queue/internal/screening"
)

// ScreenerHeader identifies the screener making a request
const ScreenerHeader = "X-Screener-Email"

const screenerKey = "screener"

// QueueLogLister reads pages of the queue log
type QueueLogLister interface {
	List(ctx context.Context, filter queuelog.Filter) ([]queuelog.Entry, error)
}

// HealthCheck reports the health of one dependency
type HealthCheck func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Queue        *queue.Engine
	Screeners    screener.Directory
	Archive      screening.Archiver
	QueueLog     QueueLogLister
	WebSocket    http.Handler
	HealthChecks map[string]HealthCheck
	Now          func() time.Time
}

// QueueHandler serves the student, screener and queue routes
type QueueHandler struct {
	logger    *slog.Logger
	queue     *queue.Engine
	screeners screener.Directory
	archive   screening.Archiver
	queueLog  QueueLogLister
	now       func() time.Time
}

// NewQueueHandler creates a new QueueHandler instance
func NewQueueHandler(deps *Dependencies) *QueueHandler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &QueueHandler{
		logger:    deps.Logger,
		queue:     deps.Queue,
		screeners: deps.Screeners,
		archive:   deps.Archive,
		queueLog:  deps.QueueLog,
		now:       now,
	}
}

// RequireScreener resolves the screener header and rejects unknown callers
func (h *QueueHandler) RequireScreener() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetHeader(ScreenerHeader)
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "screener identity is required"})
			return
		}

		sc, err := h.screeners.Lookup(c.Request.Context(), email)
		if err != nil {
			if errors.Is(err, screener.ErrUnknownScreener) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unknown screener"})
				return
			}
			h.logger.Error("Failed to look up screener",
				slog.String("screener", email),
				slog.String("error", err.Error()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to look up screener"})
			return
		}

		c.Set(screenerKey, sc)
		c.Next()
	}
}

func currentScreener(c *gin.Context) *screener.Screener {
	v, ok := c.Get(screenerKey)
	if !ok {
		return nil
	}
	sc, _ := v.(*screener.Screener)
	return sc
}

// writeError maps queue errors to HTTP status codes
func (h *QueueHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, domain.ErrDuplicateJob):
		status, message = http.StatusConflict, "student is already in the queue"
	case errors.Is(err, domain.ErrJobNotFound):
		status, message = http.StatusNotFound, "student is not in the queue"
	case errors.Is(err, domain.ErrScreenerConflict):
		status, message = http.StatusConflict, "another screener is already verifying this student"
	case errors.Is(err, domain.ErrNotFound):
		status, message = http.StatusConflict, "job changed concurrently, reload and retry"
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		status, message = http.StatusBadRequest, "invalid status change"
	case errors.Is(err, domain.ErrScreenerChangeInvalid):
		status, message = http.StatusBadRequest, "invalid screener change"
	case errors.Is(err, domain.ErrInvalidSubject):
		status, message = http.StatusBadRequest, "invalid subject grade range"
	case errors.Is(err, domain.ErrStoreUnavailable):
		status, message = http.StatusServiceUnavailable, "queue store unavailable"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	c.JSON(status, dto.ErrorResponse{Error: message})
}
