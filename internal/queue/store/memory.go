package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuongbtq/screening-queue/internal/queue/domain"
)

// Memory keeps the queue in process memory
type Memory struct {
	mu   sync.RWMutex
	jobs []domain.Job
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ListAll(ctx context.Context) ([]domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]domain.Job, len(m.jobs))
	for i, j := range m.jobs {
		jobs[i] = j.Clone()
	}
	sortByTime(jobs)
	return jobs, nil
}

func (m *Memory) Append(ctx context.Context, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs = append(m.jobs, job.Clone())
	return nil
}

func (m *Memory) RemoveExact(ctx context.Context, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(job)
	if i < 0 {
		return domain.ErrNotFound
	}
	m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
	return nil
}

func (m *Memory) ReplaceAt(ctx context.Context, index int, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.jobs) {
		return fmt.Errorf("%w: index %d out of range", domain.ErrNotFound, index)
	}
	m.jobs[index] = job.Clone()
	return nil
}

func (m *Memory) ReplaceExact(ctx context.Context, old, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(old)
	if i < 0 {
		return domain.ErrNotFound
	}
	m.jobs[i] = job.Clone()
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs = nil
	return nil
}

// indexOf must be called with the lock held
func (m *Memory) indexOf(job domain.Job) int {
	for i, j := range m.jobs {
		if j.Equal(job) {
			return i
		}
	}
	return -1
}
