package ws

import "github.com/cuongbtq/screening-queue/internal/queue/domain"

// Message types exchanged with browser clients
const (
	TypeLogin          = "login"
	TypeLoginScreener  = "loginScreener"
	TypeLogout         = "logout"
	TypeUpdateJob      = "updateJob"
	TypeRemovedJob     = "removedJob"
	TypeUpdateScreener = "updateScreener"
	TypeError          = "error"
)

// BaseMessage is used to peek at the type of an incoming frame
type BaseMessage struct {
	Type string `json:"type"`
}

// LoginMessage is sent by a student entering the waiting room
type LoginMessage struct {
	Type    string              `json:"type"`
	Email   string              `json:"email"`
	Student *domain.StudentData `json:"student,omitempty"`
}

// ScreenerLoginMessage is sent by a screener opening the dashboard
type ScreenerLoginMessage struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

// LogoutMessage is sent by a student leaving the queue
type LogoutMessage struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

type LoginResultMessage struct {
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	JobInfo *domain.JobInfo `json:"jobInfo,omitempty"`
}

type UpdateJobMessage struct {
	Type    string          `json:"type"`
	JobInfo *domain.JobInfo `json:"jobInfo"`
}

type RemovedJobMessage struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

type UpdateScreenerMessage struct {
	Type          string `json:"type"`
	ScreenerCount int    `json:"screenerCount"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
