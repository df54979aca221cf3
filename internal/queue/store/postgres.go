package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresSchema creates the backing table of the queue
const PostgresSchema = `
	CREATE TABLE IF NOT EXISTS queue_entries (
		id       BIGSERIAL PRIMARY KEY,
		list_key TEXT  NOT NULL,
		email    TEXT  NOT NULL,
		payload  JSONB NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS queue_entries_list_email_idx
		ON queue_entries (list_key, email);
`

// pqUniqueViolation is the SQLSTATE of a unique constraint violation
const pqUniqueViolation = "23505"

// Postgres stores the queue as rows of one list key, in insertion order
type Postgres struct {
	db     *sqlx.DB
	key    string
	logger *slog.Logger
}

// NewPostgres creates a store for the list identified by key
func NewPostgres(db *sqlx.DB, key string, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:     db,
		key:    key,
		logger: logger,
	}
}

func (p *Postgres) ListAll(ctx context.Context) ([]domain.Job, error) {
	query := `
		SELECT payload
		FROM queue_entries
		WHERE list_key = $1
		ORDER BY id
	`

	var payloads [][]byte
	if err := p.db.SelectContext(ctx, &payloads, query, p.key); err != nil {
		return nil, p.unavailable("list jobs", err)
	}

	jobs := make([]domain.Job, 0, len(payloads))
	for _, raw := range payloads {
		var job domain.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			p.logger.Error("Skipping unreadable queue entry",
				slog.String("list_key", p.key),
				slog.String("error", err.Error()),
			)
			continue
		}
		jobs = append(jobs, job)
	}

	sortByTime(jobs)
	return jobs, nil
}

func (p *Postgres) Append(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	query := `
		INSERT INTO queue_entries (list_key, email, payload)
		VALUES ($1, $2, $3::jsonb)
	`

	if _, err := p.db.ExecContext(ctx, query, p.key, job.Email, payload); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateJob, job.Email)
		}
		return p.unavailable("append job", err)
	}

	return nil
}

func (p *Postgres) RemoveExact(ctx context.Context, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	query := `
		DELETE FROM queue_entries
		WHERE id = (
			SELECT id FROM queue_entries
			WHERE list_key = $1 AND payload = $2::jsonb
			ORDER BY id
			LIMIT 1
		)
	`

	return p.execOne(ctx, "remove job", query, p.key, payload)
}

func (p *Postgres) ReplaceAt(ctx context.Context, index int, job domain.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	query := `
		UPDATE queue_entries
		SET email = $3, payload = $4::jsonb
		WHERE id = (
			SELECT id FROM queue_entries
			WHERE list_key = $1
			ORDER BY id
			OFFSET $2
			LIMIT 1
		)
	`

	return p.execOne(ctx, "replace job at index", query, p.key, index, job.Email, payload)
}

func (p *Postgres) ReplaceExact(ctx context.Context, old, job domain.Job) error {
	oldPayload, err := json.Marshal(old)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	query := `
		UPDATE queue_entries
		SET email = $3, payload = $4::jsonb
		WHERE id = (
			SELECT id FROM queue_entries
			WHERE list_key = $1 AND payload = $2::jsonb
			ORDER BY id
			LIMIT 1
		)
	`

	return p.execOne(ctx, "replace job", query, p.key, oldPayload, job.Email, payload)
}

func (p *Postgres) Clear(ctx context.Context) error {
	query := `DELETE FROM queue_entries WHERE list_key = $1`

	if _, err := p.db.ExecContext(ctx, query, p.key); err != nil {
		return p.unavailable("clear queue", err)
	}
	return nil
}

// execOne runs a statement that must touch exactly one row
func (p *Postgres) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return p.unavailable(op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return p.unavailable(op, err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (p *Postgres) unavailable(op string, err error) error {
	p.logger.Error("Queue store operation failed",
		slog.String("operation", op),
		slog.String("list_key", p.key),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%w: failed to %s: %v", domain.ErrStoreUnavailable, op, err)
}
