package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Grade scale accepted for subject ranges
const (
	GradeMin = 1
	GradeMax = 13
)

// Subject is a subject preference with the accepted grade range
type Subject struct {
	Name string `json:"subject"`
	Min  int    `json:"min"`
	Max  int    `json:"max"`
}

// Valid reports whether the grade range lies within the grade scale
func (s Subject) Valid() bool {
	return s.Min >= GradeMin && s.Max <= GradeMax && s.Min <= s.Max
}

// ScreenerInfo identifies the screener assigned to a job
type ScreenerInfo struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Time      int64  `json:"time"`
}

// StudentData is the input needed to put a student into the queue
type StudentData struct {
	FirstName string     `json:"firstname"`
	LastName  string     `json:"lastname"`
	Email     string     `json:"email" binding:"required"`
	Phone     string     `json:"phone"`
	Message   string     `json:"msg"`
	Feedback  string     `json:"feedback"`
	KnowsFrom string     `json:"knowcsfrom"`
	Birthday  *time.Time `json:"birthday,omitempty"`
	Subjects  []Subject  `json:"subjects"`
}

// Job is one student tracked by the queue, keyed by email
type Job struct {
	ID              string        `json:"id"`
	FirstName       string        `json:"firstname"`
	LastName        string        `json:"lastname"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	Message         string        `json:"msg"`
	Feedback        string        `json:"feedback"`
	CommentScreener string        `json:"commentScreener"`
	KnowsFrom       string        `json:"knowcsfrom"`
	Birthday        *time.Time    `json:"birthday,omitempty"`
	Subjects        []Subject     `json:"subjects"`
	MeetingURL      string        `json:"jitsi"`
	Time            int64         `json:"time"`
	Status          Status        `json:"status"`
	Screener        *ScreenerInfo `json:"screener,omitempty"`
}

// JobInfo is a job together with its derived waiting position.
// Position is zero for jobs that are not waiting.
type JobInfo struct {
	Job
	Position int `json:"position,omitempty"`
}

// JobUpdate is a partial change to a job; nil fields are left untouched
type JobUpdate struct {
	FirstName       *string    `json:"firstname,omitempty"`
	LastName        *string    `json:"lastname,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	Message         *string    `json:"msg,omitempty"`
	Feedback        *string    `json:"feedback,omitempty"`
	CommentScreener *string    `json:"commentScreener,omitempty"`
	KnowsFrom       *string    `json:"knowcsfrom,omitempty"`
	Birthday        *time.Time `json:"birthday,omitempty"`
	Subjects        []Subject  `json:"subjects,omitempty"`
	Status          *Status    `json:"status,omitempty"`
}

// Statistics summarizes the jobs currently held by the queue
type Statistics struct {
	CountWaiting   int `json:"countWaiting"`
	CountActive    int `json:"countActive"`
	CountCompleted int `json:"countCompleted"`
	CountRejected  int `json:"countRejected"`
	Total          int `json:"total"`
}

// JobID derives the stable job id of a student from the email
func JobID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(email)).String()
}

// NewJob builds a waiting job from student input
func NewJob(data StudentData, now time.Time, meetingBaseURL string) Job {
	id := JobID(data.Email)
	return Job{
		ID:         id,
		FirstName:  data.FirstName,
		LastName:   data.LastName,
		Email:      data.Email,
		Phone:      data.Phone,
		Message:    data.Message,
		Feedback:   data.Feedback,
		KnowsFrom:  data.KnowsFrom,
		Birthday:   data.Birthday,
		Subjects:   slices.Clone(data.Subjects),
		MeetingURL: meetingBaseURL + "/" + id,
		Time:       now.UnixMilli(),
		Status:     StatusWaiting,
	}
}

// ValidSubjects reports whether every subject carries a valid grade range
func ValidSubjects(subjects []Subject) bool {
	for _, s := range subjects {
		if !s.Valid() {
			return false
		}
	}
	return true
}

// Merge returns a copy of j with the update and the screener applied.
// A nil screener keeps the current assignment.
func (j Job) Merge(update JobUpdate, screener *ScreenerInfo) Job {
	merged := j.Clone()

	if update.FirstName != nil {
		merged.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		merged.LastName = *update.LastName
	}
	if update.Phone != nil {
		merged.Phone = *update.Phone
	}
	if update.Message != nil {
		merged.Message = *update.Message
	}
	if update.Feedback != nil {
		merged.Feedback = *update.Feedback
	}
	if update.CommentScreener != nil {
		merged.CommentScreener = *update.CommentScreener
	}
	if update.KnowsFrom != nil {
		merged.KnowsFrom = *update.KnowsFrom
	}
	if update.Birthday != nil {
		b := *update.Birthday
		merged.Birthday = &b
	}
	if update.Subjects != nil {
		merged.Subjects = slices.Clone(update.Subjects)
	}
	if update.Status != nil {
		merged.Status = *update.Status
	}
	if screener != nil {
		s := *screener
		merged.Screener = &s
	}

	return merged
}

// Clone returns a deep copy of the job
func (j Job) Clone() Job {
	c := j
	c.Subjects = slices.Clone(j.Subjects)
	if j.Birthday != nil {
		b := *j.Birthday
		c.Birthday = &b
	}
	if j.Screener != nil {
		s := *j.Screener
		c.Screener = &s
	}
	return c
}

// Equal reports structural equality of two job snapshots
func (j Job) Equal(other Job) bool {
	if j.ID != other.ID ||
		j.FirstName != other.FirstName ||
		j.LastName != other.LastName ||
		j.Email != other.Email ||
		j.Phone != other.Phone ||
		j.Message != other.Message ||
		j.Feedback != other.Feedback ||
		j.CommentScreener != other.CommentScreener ||
		j.KnowsFrom != other.KnowsFrom ||
		j.MeetingURL != other.MeetingURL ||
		j.Time != other.Time ||
		j.Status != other.Status {
		return false
	}

	if (j.Birthday == nil) != (other.Birthday == nil) {
		return false
	}
	if j.Birthday != nil && !j.Birthday.Equal(*other.Birthday) {
		return false
	}

	if (j.Screener == nil) != (other.Screener == nil) {
		return false
	}
	if j.Screener != nil && *j.Screener != *other.Screener {
		return false
	}

	return slices.Equal(j.Subjects, other.Subjects)
}

// ScreenerEmail returns the assigned screener's email, or empty
func (j Job) ScreenerEmail() string {
	if j.Screener == nil {
		return ""
	}
	return j.Screener.Email
}
