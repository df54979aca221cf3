package store

import (
	"context"
	"sort"

	"github.com/cuongbtq/screening-queue/internal/queue/domain"
)

// Store is the ordered backing list of queue jobs.
// It does not enforce email uniqueness; the engine checks before appending.
type Store interface {
	// ListAll returns every job sorted by enqueue time ascending
	ListAll(ctx context.Context) ([]domain.Job, error)

	// Append adds a job to the end of the backing sequence
	Append(ctx context.Context, job domain.Job) error

	// RemoveExact removes the first entry structurally equal to job.
	// Returns domain.ErrNotFound when no entry matches.
	RemoveExact(ctx context.Context, job domain.Job) error

	// ReplaceAt overwrites the entry at index of the backing sequence.
	// Stale indices silently overwrite the wrong entry.
	ReplaceAt(ctx context.Context, index int, job domain.Job) error

	// ReplaceExact overwrites the first entry structurally equal to old.
	// Returns domain.ErrNotFound when the snapshot is no longer present.
	ReplaceExact(ctx context.Context, old, job domain.Job) error

	// Clear drops the whole sequence
	Clear(ctx context.Context) error
}

// sortByTime orders jobs by enqueue time, keeping backing order for ties
func sortByTime(jobs []domain.Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].Time < jobs[j].Time
	})
}
