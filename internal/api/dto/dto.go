package dto

import (
	"encoding/json"

	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/cuongbtq/screening-queue/internal/screening"
)

type EmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// ChangeJobRequest carries the job key plus the fields to change
type ChangeJobRequest struct {
	Email string `json:"email" binding:"required"`
	domain.JobUpdate
}

// VerifyRequest stores a screening result for a student directly
type VerifyRequest struct {
	StudentEmail    string            `json:"studentEmail" binding:"required"`
	ScreeningResult *screening.Result `json:"screeningResult" binding:"required"`
}

type JobInfoQuery struct {
	Email string `form:"email" binding:"required"`
}

type ListQueueLogRequest struct {
	Email         string `form:"email"`
	Status        string `form:"status"`
	ScreenerEmail string `form:"screener_email"`
	PageSize      int    `form:"page_size"`
	Cursor        string `form:"cursor"`
}

type ListQueueLogResponse struct {
	Entries    []QueueLogEntryDTO `json:"entries"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type QueueLogEntryDTO struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	Status        string          `json:"status"`
	ScreenerEmail string          `json:"screenerEmail"`
	Job           json.RawMessage `json:"job"`
	CreatedAt     string          `json:"created_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
