package queue

import (
	"testing"

	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/stretchr/testify/assert"
)

func TestWithPositions(t *testing.T) {
	jobs := []domain.Job{
		{Email: "a@x.com", Status: domain.StatusCompleted},
		{Email: "b@x.com", Status: domain.StatusWaiting},
		{Email: "c@x.com", Status: domain.StatusActive},
		{Email: "d@x.com", Status: domain.StatusWaiting},
		{Email: "e@x.com", Status: domain.StatusRejected},
		{Email: "f@x.com", Status: domain.StatusWaiting},
	}

	infos := WithPositions(jobs)

	want := []int{0, 1, 0, 2, 0, 3}
	for i, info := range infos {
		assert.Equal(t, jobs[i].Email, info.Email)
		assert.Equal(t, want[i], info.Position, info.Email)
	}
}

func TestWithPositions_Empty(t *testing.T) {
	assert.Empty(t, WithPositions(nil))
}
