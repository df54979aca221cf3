package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/screening-queue/internal/bus"
	"github.com/cuongbtq/screening-queue/internal/queuelog"
)

// Recorder persists queue log entries
type Recorder interface {
	Record(ctx context.Context, entry *queuelog.Entry) (bool, error)
}

// QueueLog records the final outcome of every reviewed job
type QueueLog struct {
	reader   JobReader
	recorder Recorder
	logger   *slog.Logger
}

func NewQueueLog(reader JobReader, recorder Recorder, logger *slog.Logger) *QueueLog {
	return &QueueLog{reader: reader, recorder: recorder, logger: logger}
}

func (q *QueueLog) Name() string { return "queue-log" }

func (q *QueueLog) Handle(ctx context.Context, msg bus.Message) error {
	if msg.Operation != bus.OperationChangedStatus {
		return nil
	}

	info, err := q.reader.GetWithPosition(ctx, msg.Email)
	if err != nil {
		return err
	}
	if info == nil || !info.Status.Terminal() {
		return nil
	}

	payload, err := json.Marshal(info.Job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	screenerEmail := info.ScreenerEmail()
	if screenerEmail == "" {
		screenerEmail = msg.ScreenerEmail
	}

	inserted, err := q.recorder.Record(ctx, &queuelog.Entry{
		Email:         info.Email,
		Status:        string(info.Status),
		ScreenerEmail: screenerEmail,
		JobTime:       info.Time,
		Job:           payload,
	})
	if err != nil {
		return err
	}

	if inserted {
		q.logger.Info("Recorded screening outcome",
			slog.String("email", info.Email),
			slog.String("status", string(info.Status)),
			slog.String("screener", screenerEmail),
		)
	}
	return nil
}
