package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/screening-queue/internal/bus"
	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/cuongbtq/screening-queue/internal/queue/store"
)

// DefaultMeetingBaseURL is used for meeting rooms when none is configured
const DefaultMeetingBaseURL = "https://meet.jit.si"

// Config holds engine dependencies
type Config struct {
	Store          store.Store
	Publisher      bus.Publisher
	Logger         *slog.Logger
	MeetingBaseURL string
	ScreenerPolicy domain.ScreenerPolicy
	Now            func() time.Time
}

// Engine is the only writer of the queue. It validates changes, derives
// waiting positions and publishes a change message after every mutation.
type Engine struct {
	store          store.Store
	publisher      bus.Publisher
	logger         *slog.Logger
	meetingBaseURL string
	screenerPolicy domain.ScreenerPolicy
	now            func() time.Time

	// mu serializes read-modify-write sequences against the store
	mu sync.Mutex
}

// NewEngine creates a new queue engine
func NewEngine(cfg *Config) *Engine {
	e := &Engine{
		store:          cfg.Store,
		publisher:      cfg.Publisher,
		logger:         cfg.Logger,
		meetingBaseURL: cfg.MeetingBaseURL,
		screenerPolicy: cfg.ScreenerPolicy,
		now:            cfg.Now,
	}

	if e.meetingBaseURL == "" {
		e.meetingBaseURL = DefaultMeetingBaseURL
	}
	if e.screenerPolicy == nil {
		e.screenerPolicy = domain.IsValidScreenerChange
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	return e
}

// Enqueue puts a student at the end of the queue
func (e *Engine) Enqueue(ctx context.Context, data domain.StudentData) (*domain.JobInfo, error) {
	if !domain.ValidSubjects(data.Subjects) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSubject, data.Email)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	jobs, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if _, ok := findJob(jobs, data.Email); ok {
		e.logger.Warn("Found duplicate job",
			slog.String("email", data.Email),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateJob, data.Email)
	}

	job := domain.NewJob(data, e.now(), e.meetingBaseURL)
	if err := e.store.Append(ctx, job); err != nil {
		e.logger.Error("Could not add job to queue",
			slog.String("email", job.Email),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	info, err := e.getWithPosition(ctx, job.Email)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s vanished after enqueue", domain.ErrJobNotFound, job.Email)
	}

	e.logger.Info("Added new job",
		slog.String("email", info.Email),
		slog.Int("position", info.Position),
	)
	e.publish(ctx, bus.Message{Operation: bus.OperationAddedJob, Email: info.Email})

	return info, nil
}

// Dequeue removes the job of a student from the queue
func (e *Engine) Dequeue(ctx context.Context, email string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	jobs, err := e.store.ListAll(ctx)
	if err != nil {
		return false, err
	}

	job, ok := findJob(jobs, email)
	if !ok {
		e.logger.Warn("Could not remove job because it is not in the queue",
			slog.String("email", email),
		)
		return false, fmt.Errorf("%w: %s", domain.ErrJobNotFound, email)
	}

	if err := e.store.RemoveExact(ctx, job); err != nil {
		e.logger.Error("Could not remove job",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return false, err
	}

	e.logger.Info("Removed job",
		slog.String("email", email),
	)
	e.publish(ctx, bus.Message{Operation: bus.OperationRemovedJob, Email: email})

	return true, nil
}

// GetWithPosition returns the job of a student with its waiting position.
// A missing job yields (nil, nil).
func (e *Engine) GetWithPosition(ctx context.Context, email string) (*domain.JobInfo, error) {
	return e.getWithPosition(ctx, email)
}

func (e *Engine) getWithPosition(ctx context.Context, email string) (*domain.JobInfo, error) {
	infos, err := e.ListWithPositions(ctx)
	if err != nil {
		return nil, err
	}

	for i := range infos {
		if infos[i].Email == email {
			return &infos[i], nil
		}
	}
	return nil, nil
}

// ChangeJob applies a partial update and a screener assignment to a job.
// Validation happens against a fresh snapshot, and the store write only
// succeeds if that snapshot is still the stored one.
func (e *Engine) ChangeJob(ctx context.Context, email string, update domain.JobUpdate, screener *domain.ScreenerInfo) (*domain.JobInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, err := e.getWithPosition(ctx, email)
	if err != nil {
		return nil, err
	}
	if current == nil {
		e.logger.Warn("Could not change job because it is not in the queue",
			slog.String("email", email),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, email)
	}

	candidate := current.Job.Merge(update, screener)

	if !candidate.Status.Valid() || !domain.IsValidStatusChange(current.Status, candidate.Status) {
		e.logger.Warn("Invalid status change of job",
			slog.String("email", email),
			slog.String("from", string(current.Status)),
			slog.String("to", string(candidate.Status)),
			slog.String("old_screener", current.ScreenerEmail()),
			slog.String("new_screener", candidate.ScreenerEmail()),
		)
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, current.Status, candidate.Status)
	}

	if candidate.Status == domain.StatusActive &&
		current.Screener != nil &&
		candidate.ScreenerEmail() != current.ScreenerEmail() {
		e.logger.Warn("Job is already handled by another screener",
			slog.String("email", email),
			slog.String("screener", current.ScreenerEmail()),
			slog.String("requested_by", candidate.ScreenerEmail()),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrScreenerConflict, email)
	}

	if !e.screenerPolicy(current.Job, candidate) {
		e.logger.Warn("Invalid screener change of job",
			slog.String("email", email),
			slog.String("from", current.ScreenerEmail()),
			slog.String("to", candidate.ScreenerEmail()),
		)
		return nil, fmt.Errorf("%w: %s", domain.ErrScreenerChangeInvalid, email)
	}

	if !domain.ValidSubjects(candidate.Subjects) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSubject, email)
	}

	if err := e.store.ReplaceExact(ctx, current.Job, candidate); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			e.logger.Warn("Job changed concurrently, rejecting stale update",
				slog.String("email", email),
			)
			return nil, fmt.Errorf("%w: %s changed concurrently", domain.ErrNotFound, email)
		}
		return nil, err
	}

	e.logger.Info("Job changed",
		slog.String("email", email),
		slog.String("from", string(current.Status)),
		slog.String("to", string(candidate.Status)),
		slog.String("screener", candidate.ScreenerEmail()),
	)
	e.publish(ctx, bus.Message{
		Operation:     bus.OperationChangedStatus,
		Email:         email,
		ScreenerEmail: candidate.ScreenerEmail(),
	})

	info, err := e.getWithPosition(ctx, email)
	if err != nil || info == nil {
		// the write went through; fall back to the merged snapshot
		return &domain.JobInfo{Job: candidate}, nil
	}
	return info, nil
}

// ResetAll empties the queue without publishing per-job messages
func (e *Engine) ResetAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Clear(ctx); err != nil {
		e.logger.Error("Could not reset queue",
			slog.String("error", err.Error()),
		)
		return err
	}

	e.logger.Info("Queue was reset")
	return nil
}

// ListAll returns every job in enqueue order
func (e *Engine) ListAll(ctx context.Context) ([]domain.Job, error) {
	return e.store.ListAll(ctx)
}

// ListWithPositions returns every job in enqueue order with derived positions
func (e *Engine) ListWithPositions(ctx context.Context) ([]domain.JobInfo, error) {
	jobs, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return WithPositions(jobs), nil
}

// Statistics counts the jobs of the queue per status
func (e *Engine) Statistics(ctx context.Context) (*domain.Statistics, error) {
	jobs, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.Statistics{}
	for _, j := range jobs {
		switch j.Status {
		case domain.StatusWaiting:
			stats.CountWaiting++
		case domain.StatusActive:
			stats.CountActive++
		case domain.StatusCompleted:
			stats.CountCompleted++
		case domain.StatusRejected:
			stats.CountRejected++
		}
	}
	stats.Total = stats.CountCompleted + stats.CountRejected

	return stats, nil
}

// publish signals a change; failures never fail the operation
func (e *Engine) publish(ctx context.Context, msg bus.Message) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, msg); err != nil {
		e.logger.Error("Failed to publish queue change",
			slog.String("operation", string(msg.Operation)),
			slog.String("email", msg.Email),
			slog.String("error", err.Error()),
		)
	}
}

func findJob(jobs []domain.Job, email string) (domain.Job, bool) {
	for _, j := range jobs {
		if j.Email == email {
			return j, true
		}
	}
	return domain.Job{}, false
}
