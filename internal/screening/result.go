package screening

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/screening-queue/internal/queue/domain"
)

// Result is the outcome of a screening, kept with the student record
type Result struct {
	Email           string     `db:"email" json:"email"`
	Verified        bool       `db:"verified" json:"verified"`
	Birthday        *time.Time `db:"birthday" json:"birthday,omitempty"`
	CommentScreener string     `db:"comment_screener" json:"commentScreener"`
	KnowsFrom       string     `db:"knows_from" json:"knowcsfrom"`
	Subjects        string     `db:"subjects" json:"subjects"`
	Feedback        string     `db:"feedback" json:"feedback"`
	ScreenerEmail   string     `db:"screener_email" json:"screenerEmail"`
}

// NewResult builds the screening result of a reviewed job
func NewResult(job domain.Job) (*Result, error) {
	if !job.Status.Terminal() {
		return nil, fmt.Errorf("job of %s is still %s", job.Email, job.Status)
	}

	subjects := make([]string, len(job.Subjects))
	for i, s := range job.Subjects {
		subjects[i] = fmt.Sprintf("%s%d:%d", s.Name, s.Min, s.Max)
	}
	encoded, err := json.Marshal(subjects)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subjects: %w", err)
	}

	return &Result{
		Email:           job.Email,
		Verified:        job.Status == domain.StatusCompleted,
		Birthday:        job.Birthday,
		CommentScreener: job.CommentScreener,
		KnowsFrom:       job.KnowsFrom,
		Subjects:        string(encoded),
		Feedback:        job.Feedback,
		ScreenerEmail:   job.ScreenerEmail(),
	}, nil
}
