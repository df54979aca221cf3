package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/screening-queue/internal/api/dto"
	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/cuongbtq/screening-queue/internal/screening"
)

// StudentLogin handles POST /student/login
func (h *QueueHandler) StudentLogin(c *gin.Context) {
	var req domain.StudentData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	info, err := h.queue.Enqueue(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// StudentLogout handles POST /student/logout
func (h *QueueHandler) StudentLogout(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
		return
	}

	if _, err := h.queue.Dequeue(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Student successfully logged out."})
}

// RemoveStudent handles POST /student/remove
func (h *QueueHandler) RemoveStudent(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
		return
	}

	if _, err := h.queue.Dequeue(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("Student removed by screener",
		slog.String("email", req.Email),
		slog.String("screener", currentScreener(c).Email),
	)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Student job successfully removed."})
}

// JobInfo handles GET /student/jobInfo. A student outside the queue yields null.
func (h *QueueHandler) JobInfo(c *gin.Context) {
	var req dto.JobInfoQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
		return
	}

	info, err := h.queue.GetWithPosition(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if info == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, info)
}

// ChangeJob handles POST /student/changeJob
func (h *QueueHandler) ChangeJob(c *gin.Context) {
	var req dto.ChangeJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	sc := currentScreener(c)
	info, err := h.queue.ChangeJob(c.Request.Context(), req.Email, req.JobUpdate, sc.Info(h.now()))
	if err != nil {
		h.writeError(c, err)
		return
	}

	if info.Status.Terminal() {
		h.archiveResult(c, info.Job)
	}

	c.JSON(http.StatusOK, info)
}

// archiveResult stores the screening outcome; failures never fail the request
func (h *QueueHandler) archiveResult(c *gin.Context, job domain.Job) {
	if h.archive == nil {
		return
	}

	result, err := screening.NewResult(job)
	if err == nil {
		err = h.archive.Save(c.Request.Context(), result)
	}
	if err != nil {
		h.logger.Error("Student data could not be updated",
			slog.String("email", job.Email),
			slog.String("error", err.Error()),
		)
	}
}

// ScreeningResult handles GET /student/result
func (h *QueueHandler) ScreeningResult(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "screening archive is disabled"})
		return
	}

	var req dto.JobInfoQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "email is required"})
		return
	}

	result, err := h.archive.Get(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, screening.ErrResultNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no screening result for student"})
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifyStudent handles POST /student/verify. The result is stored as sent;
// a missing screener email is filled in with the caller.
func (h *QueueHandler) VerifyStudent(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: "screening archive is disabled"})
		return
	}

	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Not the correct data."})
		return
	}

	result := *req.ScreeningResult
	result.Email = req.StudentEmail
	if result.ScreenerEmail == "" {
		result.ScreenerEmail = currentScreener(c).Email
	}
	if result.Subjects == "" {
		result.Subjects = "[]"
	}

	if err := h.archive.Save(c.Request.Context(), &result); err != nil {
		h.logger.Error("Could not verify student",
			slog.String("email", result.Email),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Could not verify student."})
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Screening Result saved."})
}
