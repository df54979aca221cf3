package screener

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema creates the screener profile table
const Schema = `
CREATE TABLE IF NOT EXISTS screeners (
	id         SERIAL PRIMARY KEY,
	firstname  TEXT NOT NULL,
	lastname   TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Postgres reads screener profiles from PostgreSQL
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Lookup(ctx context.Context, email string) (*Screener, error) {
	var sc Screener
	query := `
		SELECT id, firstname, lastname, email, created_at
		FROM screeners
		WHERE LOWER(email) = LOWER($1)
	`

	if err := p.db.GetContext(ctx, &sc, query, normalize(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownScreener
		}
		return nil, fmt.Errorf("failed to get screener: %w", err)
	}

	return &sc, nil
}

// Register inserts a screener or updates the names of an existing one
func (p *Postgres) Register(ctx context.Context, sc *Screener) error {
	query := `
		INSERT INTO screeners (firstname, lastname, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET firstname = EXCLUDED.firstname, lastname = EXCLUDED.lastname
		RETURNING id, created_at
	`

	row := p.db.QueryRowxContext(ctx, query, sc.FirstName, sc.LastName, normalize(sc.Email))
	if err := row.Scan(&sc.ID, &sc.CreatedAt); err != nil {
		return fmt.Errorf("failed to register screener: %w", err)
	}
	sc.Email = normalize(sc.Email)

	return nil
}
