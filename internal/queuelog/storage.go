package queuelog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Schema creates the queue log table. A job outcome is recorded once per
// enqueue (job_time) and status.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS queue_log (
		id             BIGSERIAL PRIMARY KEY,
		email          TEXT NOT NULL,
		status         TEXT NOT NULL,
		screener_email TEXT NOT NULL DEFAULT '',
		job_time       BIGINT NOT NULL,
		job            JSONB NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS queue_log_outcome_idx ON queue_log (email, job_time, status)`,
	`CREATE INDEX IF NOT EXISTS queue_log_page_idx ON queue_log (created_at DESC, id DESC)`,
}

// Entry is one recorded screening outcome
type Entry struct {
	ID            int64           `db:"id"`
	Email         string          `db:"email"`
	Status        string          `db:"status"`
	ScreenerEmail string          `db:"screener_email"`
	JobTime       int64           `db:"job_time"`
	Job           json.RawMessage `db:"job"`
	CreatedAt     time.Time       `db:"created_at"`
}

// Filter narrows a page of queue log entries
type Filter struct {
	Email         string
	Status        string
	ScreenerEmail string
	PageSize      int
	Cursor        *Cursor
}

// Cursor points at the last entry of the previous page
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Record inserts an entry. Recording the same outcome twice is a no-op.
func (s *Storage) Record(ctx context.Context, entry *Entry) (bool, error) {
	query := `
		INSERT INTO queue_log (
			email, status, screener_email, job_time, job
		) VALUES (
			$1, $2, $3, $4, $5
		)
		ON CONFLICT (email, job_time, status) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		entry.Email,
		entry.Status,
		entry.ScreenerEmail,
		entry.JobTime,
		[]byte(entry.Job),
	)
	if err != nil {
		return false, fmt.Errorf("failed to record queue log entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record queue log entry: %w", err)
	}
	return n == 1, nil
}

// List returns up to PageSize+1 entries, newest first
func (s *Storage) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT
			id, email, status, screener_email,
			job_time, job, created_at
		FROM queue_log
		WHERE 1=1
	`
	args := []any{}
	argIdx := 1

	if filter.Email != "" {
		query += fmt.Sprintf(" AND email = $%d", argIdx)
		args = append(args, filter.Email)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.ScreenerEmail != "" {
		query += fmt.Sprintf(" AND screener_email = $%d", argIdx)
		args = append(args, filter.ScreenerEmail)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	// one extra row tells the caller whether another page exists
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var entries []Entry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list queue log: %w", err)
	}

	return entries, nil
}
