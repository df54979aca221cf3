package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	data := StudentData{
		FirstName: "Anja",
		LastName:  "Meyer",
		Email:     "anja@example.com",
		Subjects:  []Subject{{Name: "Mathe", Min: 5, Max: 10}},
	}

	job := NewJob(data, now, "https://meet.jit.si")

	assert.Equal(t, StatusWaiting, job.Status)
	assert.Equal(t, now.UnixMilli(), job.Time)
	assert.Equal(t, JobID("anja@example.com"), job.ID)
	assert.Equal(t, "https://meet.jit.si/"+job.ID, job.MeetingURL)
	assert.Nil(t, job.Screener)

	// subjects must not alias the input
	data.Subjects[0].Max = 13
	assert.Equal(t, 10, job.Subjects[0].Max)
}

func TestJobID_Stable(t *testing.T) {
	assert.Equal(t, JobID("a@x.com"), JobID("a@x.com"))
	assert.NotEqual(t, JobID("a@x.com"), JobID("b@x.com"))
}

func TestJob_Merge(t *testing.T) {
	base := Job{
		Email:    "a@x.com",
		Status:   StatusWaiting,
		Feedback: "old",
		Subjects: []Subject{{Name: "Mathe", Min: 1, Max: 13}},
	}

	active := StatusActive
	comment := "great"
	screener := &ScreenerInfo{ID: 7, Email: "s@screener.de", Time: 42}

	merged := base.Merge(JobUpdate{Status: &active, CommentScreener: &comment}, screener)

	assert.Equal(t, StatusActive, merged.Status)
	assert.Equal(t, "great", merged.CommentScreener)
	assert.Equal(t, "old", merged.Feedback)
	require.NotNil(t, merged.Screener)
	assert.Equal(t, "s@screener.de", merged.Screener.Email)

	// the original stays untouched
	assert.Equal(t, StatusWaiting, base.Status)
	assert.Nil(t, base.Screener)

	screener.Email = "changed@screener.de"
	assert.Equal(t, "s@screener.de", merged.Screener.Email)
}

func TestJob_MergeKeepsScreenerWhenNil(t *testing.T) {
	base := Job{Status: StatusActive, Screener: &ScreenerInfo{Email: "s@screener.de"}}
	merged := base.Merge(JobUpdate{}, nil)
	require.NotNil(t, merged.Screener)
	assert.Equal(t, "s@screener.de", merged.ScreenerEmail())
}

func TestJob_Equal(t *testing.T) {
	birthday := time.Date(2005, 3, 1, 0, 0, 0, 0, time.UTC)
	job := Job{
		Email:    "a@x.com",
		Birthday: &birthday,
		Subjects: []Subject{{Name: "Mathe", Min: 1, Max: 13}},
		Screener: &ScreenerInfo{Email: "s@screener.de"},
	}

	assert.True(t, job.Equal(job.Clone()))

	other := job.Clone()
	other.Subjects[0].Max = 12
	assert.False(t, job.Equal(other))

	other = job.Clone()
	other.Screener = nil
	assert.False(t, job.Equal(other))

	other = job.Clone()
	later := birthday.Add(time.Hour)
	other.Birthday = &later
	assert.False(t, job.Equal(other))
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusActive.Terminal())
	assert.False(t, Status("paused").Valid())
	assert.True(t, StatusWaiting.Valid())
}
