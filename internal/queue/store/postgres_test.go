package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to QUEUE_TEST_DATABASE_DSN or skips the test
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()

	dsn := os.Getenv("QUEUE_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("QUEUE_TEST_DATABASE_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(PostgresSchema)
	require.NoError(t, err)

	key := "test-" + time.Now().Format("150405.000000000")
	p := NewPostgres(db, key, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = p.Clear(context.Background()) })

	return p
}

func TestPostgres_Lifecycle(t *testing.T) {
	p := newTestPostgres(t)
	ctx := context.Background()

	birthday := time.Date(2006, 5, 4, 0, 0, 0, 0, time.UTC)
	a := job("a@x.com", 200)
	a.Birthday = &birthday
	a.Subjects = []domain.Subject{{Name: "Mathe", Min: 3, Max: 9}}
	b := job("b@x.com", 100)

	require.NoError(t, p.Append(ctx, a))
	require.NoError(t, p.Append(ctx, b))

	jobs, err := p.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, emails(jobs))
	assert.True(t, jobs[1].Equal(a))

	t.Run("duplicate email rejected by index", func(t *testing.T) {
		err := p.Append(ctx, job("a@x.com", 300))
		assert.ErrorIs(t, err, domain.ErrDuplicateJob)
	})

	t.Run("replace exact uses the decoded snapshot", func(t *testing.T) {
		active := jobs[1]
		active.Status = domain.StatusActive
		require.NoError(t, p.ReplaceExact(ctx, jobs[1], active))
		assert.ErrorIs(t, p.ReplaceExact(ctx, jobs[1], active), domain.ErrNotFound)
	})

	t.Run("replace at backing index", func(t *testing.T) {
		changed := b
		changed.Feedback = "positional"
		require.NoError(t, p.ReplaceAt(ctx, 1, changed))

		got, err := p.ListAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, "positional", got[0].Feedback)
	})

	t.Run("remove exact", func(t *testing.T) {
		assert.ErrorIs(t, p.RemoveExact(ctx, b), domain.ErrNotFound)

		got, err := p.ListAll(ctx)
		require.NoError(t, err)
		require.NoError(t, p.RemoveExact(ctx, got[0]))

		got, err = p.ListAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a@x.com"}, emails(got))
	})

	require.NoError(t, p.Clear(ctx))
	jobs, err = p.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
