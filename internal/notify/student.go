package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/screening-queue/internal/bus"
	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/cuongbtq/screening-queue/internal/screener"
)

// JobReader is the read side of the queue engine
type JobReader interface {
	GetWithPosition(ctx context.Context, email string) (*domain.JobInfo, error)
	ListWithPositions(ctx context.Context) ([]domain.JobInfo, error)
}

// Pusher delivers events to the connected sessions of a student
type Pusher interface {
	UpdateJob(ctx context.Context, email string, info *domain.JobInfo) error
	RemovedJob(ctx context.Context, email string) error
	UpdateScreener(ctx context.Context, email string, screenerCount int) error
}

// StudentPush keeps connected students up to date with their queue state
type StudentPush struct {
	reader    JobReader
	pusher    Pusher
	directory screener.Directory
	logger    *slog.Logger
}

// NewStudentPush creates the student push handler. The directory is
// optional and only used to fill in screener names.
func NewStudentPush(reader JobReader, pusher Pusher, directory screener.Directory, logger *slog.Logger) *StudentPush {
	return &StudentPush{
		reader:    reader,
		pusher:    pusher,
		directory: directory,
		logger:    logger,
	}
}

func (s *StudentPush) Name() string { return "student-push" }

func (s *StudentPush) Handle(ctx context.Context, msg bus.Message) error {
	switch msg.Operation {
	case bus.OperationAddedJob:
		info, err := s.reader.GetWithPosition(ctx, msg.Email)
		if err != nil {
			return err
		}
		if info == nil {
			return nil
		}
		return s.pusher.UpdateJob(ctx, msg.Email, info)

	case bus.OperationChangedStatus:
		infos, err := s.reader.ListWithPositions(ctx)
		if err != nil {
			return err
		}

		var errs []error
		for i := range infos {
			info := &infos[i]
			switch {
			case info.Email == msg.Email:
				errs = append(errs, s.pusher.UpdateJob(ctx, info.Email, s.withScreenerNames(ctx, msg, info)))
			case info.Status == domain.StatusWaiting:
				errs = append(errs, s.pusher.UpdateJob(ctx, info.Email, info))
			}
		}
		return errors.Join(errs...)

	case bus.OperationRemovedJob:
		infos, err := s.reader.ListWithPositions(ctx)
		if err != nil {
			return err
		}

		errs := []error{s.pusher.RemovedJob(ctx, msg.Email)}
		for i := range infos {
			if infos[i].Status == domain.StatusWaiting {
				errs = append(errs, s.pusher.UpdateJob(ctx, infos[i].Email, &infos[i]))
			}
		}
		return errors.Join(errs...)
	}

	return fmt.Errorf("unknown operation %q", msg.Operation)
}

// withScreenerNames overlays the current profile names of the screener
// that made the change
func (s *StudentPush) withScreenerNames(ctx context.Context, msg bus.Message, info *domain.JobInfo) *domain.JobInfo {
	if s.directory == nil || msg.ScreenerEmail == "" {
		return info
	}

	profile, err := s.directory.Lookup(ctx, msg.ScreenerEmail)
	if err != nil {
		s.logger.Warn("Could not look up screener",
			slog.String("screener", msg.ScreenerEmail),
			slog.String("error", err.Error()),
		)
		return info
	}

	enriched := *info
	enriched.Job = info.Job.Clone()
	if enriched.Screener == nil {
		enriched.Screener = &domain.ScreenerInfo{ID: profile.ID, Email: profile.Email}
	}
	enriched.Screener.FirstName = profile.FirstName
	enriched.Screener.LastName = profile.LastName
	return &enriched
}

// BroadcastScreenerCount tells every waiting student how many screeners are online
func BroadcastScreenerCount(ctx context.Context, reader JobReader, pusher Pusher, screenerCount int) error {
	infos, err := reader.ListWithPositions(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, info := range infos {
		if info.Status == domain.StatusWaiting {
			errs = append(errs, pusher.UpdateScreener(ctx, info.Email, screenerCount))
		}
	}
	return errors.Join(errs...)
}
