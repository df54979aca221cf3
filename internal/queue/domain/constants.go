package domain

// Status is the lifecycle state of a job
type Status string

// Job status constants
const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusActive, StatusCompleted, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether s is a final review outcome
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}
