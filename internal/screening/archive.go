package screening

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Schema creates the screening result table
const Schema = `
CREATE TABLE IF NOT EXISTS screening_results (
	email            TEXT PRIMARY KEY,
	verified         BOOLEAN NOT NULL,
	birthday         TIMESTAMPTZ,
	comment_screener TEXT NOT NULL DEFAULT '',
	knows_from       TEXT NOT NULL DEFAULT '',
	subjects         TEXT NOT NULL DEFAULT '[]',
	feedback         TEXT NOT NULL DEFAULT '',
	screener_email   TEXT NOT NULL DEFAULT '',
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// ErrResultNotFound is returned when no result is stored for a student
var ErrResultNotFound = errors.New("screening result not found")

// Archiver stores screening results
type Archiver interface {
	Save(ctx context.Context, result *Result) error
	Get(ctx context.Context, email string) (*Result, error)
}

// Postgres keeps the latest result per student
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Save(ctx context.Context, result *Result) error {
	query := `
		INSERT INTO screening_results (
			email, verified, birthday, comment_screener,
			knows_from, subjects, feedback, screener_email
		) VALUES (
			:email, :verified, :birthday, :comment_screener,
			:knows_from, :subjects, :feedback, :screener_email
		)
		ON CONFLICT (email) DO UPDATE SET
			verified = EXCLUDED.verified,
			birthday = EXCLUDED.birthday,
			comment_screener = EXCLUDED.comment_screener,
			knows_from = EXCLUDED.knows_from,
			subjects = EXCLUDED.subjects,
			feedback = EXCLUDED.feedback,
			screener_email = EXCLUDED.screener_email,
			updated_at = NOW()
	`

	if _, err := p.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("failed to save screening result: %w", err)
	}
	return nil
}

// Get returns the stored result of a student
func (p *Postgres) Get(ctx context.Context, email string) (*Result, error) {
	var result Result
	query := `
		SELECT email, verified, birthday, comment_screener,
			knows_from, subjects, feedback, screener_email
		FROM screening_results
		WHERE email = $1
	`

	if err := p.db.GetContext(ctx, &result, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrResultNotFound, email)
		}
		return nil, fmt.Errorf("failed to get screening result: %w", err)
	}
	return &result, nil
}

// Memory keeps results in process memory
type Memory struct {
	mu      sync.Mutex
	results map[string]Result
}

func NewMemory() *Memory {
	return &Memory{results: make(map[string]Result)}
}

func (m *Memory) Save(ctx context.Context, result *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results[result.Email] = *result
	return nil
}

func (m *Memory) Get(ctx context.Context, email string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[email]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResultNotFound, email)
	}
	return &r, nil
}
