package screening

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewedJob(status domain.Status) domain.Job {
	birthday := time.Date(2004, 5, 1, 0, 0, 0, 0, time.UTC)
	return domain.Job{
		Email:           "a@x.com",
		Status:          status,
		Birthday:        &birthday,
		CommentScreener: "motivated",
		KnowsFrom:       "friends",
		Feedback:        "nice",
		Subjects: []domain.Subject{
			{Name: "Mathe", Min: 5, Max: 10},
			{Name: "Deutsch", Min: 1, Max: 4},
		},
		Screener: &domain.ScreenerInfo{ID: 1, Email: "s@screener.de"},
	}
}

func TestNewResult(t *testing.T) {
	tests := []struct {
		name         string
		status       domain.Status
		wantVerified bool
		wantErr      bool
	}{
		{name: "completed is verified", status: domain.StatusCompleted, wantVerified: true},
		{name: "rejected is not verified", status: domain.StatusRejected, wantVerified: false},
		{name: "waiting has no result", status: domain.StatusWaiting, wantErr: true},
		{name: "active has no result", status: domain.StatusActive, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewResult(reviewedJob(tt.status))
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantVerified, result.Verified)
			assert.Equal(t, "a@x.com", result.Email)
			assert.Equal(t, "s@screener.de", result.ScreenerEmail)
			assert.Equal(t, "motivated", result.CommentScreener)
			assert.Equal(t, "friends", result.KnowsFrom)
			assert.Equal(t, "nice", result.Feedback)
			require.NotNil(t, result.Birthday)
			assert.Equal(t, 2004, result.Birthday.Year())

			var subjects []string
			require.NoError(t, json.Unmarshal([]byte(result.Subjects), &subjects))
			assert.Equal(t, []string{"Mathe5:10", "Deutsch1:4"}, subjects)
		})
	}
}

func TestNewResult_NoSubjects(t *testing.T) {
	job := reviewedJob(domain.StatusCompleted)
	job.Subjects = nil

	result, err := NewResult(job)
	require.NoError(t, err)
	assert.Equal(t, "[]", result.Subjects)
}

func TestMemory_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	archive := NewMemory()

	_, err := archive.Get(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrResultNotFound)

	result, err := NewResult(reviewedJob(domain.StatusCompleted))
	require.NoError(t, err)
	require.NoError(t, archive.Save(ctx, result))

	got, err := archive.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, got.Verified)
}
