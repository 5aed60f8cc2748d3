package journal

import (
	"context"
	"fmt"
	"time"

	"locale-patcher/internal/patch"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Status values stored per locale.
const (
	StatusPatched   = "patched"
	StatusUnchanged = "unchanged"
	StatusPreview   = "preview"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS patch_journal (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID        NOT NULL,
	locale      TEXT        NOT NULL,
	path        TEXT        NOT NULL,
	status      TEXT        NOT NULL,
	removed     INTEGER     NOT NULL DEFAULT 0,
	hash_before TEXT        NOT NULL DEFAULT '',
	hash_after  TEXT        NOT NULL DEFAULT '',
	error       TEXT        NOT NULL DEFAULT '',
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS patch_journal_locale_idx ON patch_journal (locale, recorded_at DESC);
`

// Entry is one journal row.
type Entry struct {
	RunID      uuid.UUID
	Locale     string
	Path       string
	Status     string
	Removed    int
	HashBefore string
	HashAfter  string
	Error      string
	RecordedAt time.Time
}

// Journal stores the outcome of every patched locale in PostgreSQL so
// repeated runs against the same files can be audited.
type Journal struct {
	pool  *pgxpool.Pool
	runID uuid.UUID
}

// Open connects to PostgreSQL and ensures the journal table exists. Each
// Journal value represents one run.
func Open(ctx context.Context, databaseURL string) (*Journal, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure journal schema: %w", err)
	}

	j := &Journal{pool: pool, runID: uuid.New()}
	log.Info().Str("run", j.runID.String()).Msg("Connected to patch journal")
	return j, nil
}

// RunID identifies the rows written by this Journal.
func (j *Journal) RunID() uuid.UUID { return j.runID }

// Close releases the connection pool.
func (j *Journal) Close() { j.pool.Close() }

// Record implements patch.Recorder.
func (j *Journal) Record(ctx context.Context, locale, path string, res *patch.Result, err error) error {
	e := NewEntry(j.runID, locale, path, res, err)

	_, execErr := j.pool.Exec(ctx, `
		INSERT INTO patch_journal (run_id, locale, path, status, removed, hash_before, hash_after, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.RunID, e.Locale, e.Path, e.Status, e.Removed, e.HashBefore, e.HashAfter, e.Error,
	)
	if execErr != nil {
		return fmt.Errorf("insert journal entry: %w", execErr)
	}
	return nil
}

// History returns the latest entries, newest first. An empty locale
// returns entries for all locales.
func (j *Journal) History(ctx context.Context, locale string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.pool.Query(ctx, `
		SELECT run_id, locale, path, status, removed, hash_before, hash_after, error, recorded_at
		FROM patch_journal
		WHERE $1 = '' OR locale = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2`, locale, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.RunID, &e.Locale, &e.Path, &e.Status, &e.Removed, &e.HashBefore, &e.HashAfter, &e.Error, &e.RecordedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return entries, nil
}

// NewEntry builds the row describing one locale's outcome.
func NewEntry(runID uuid.UUID, locale, path string, res *patch.Result, err error) Entry {
	e := Entry{RunID: runID, Locale: locale, Path: path, Status: Status(res, err)}
	if err != nil {
		e.Error = err.Error()
		return e
	}
	if res != nil {
		e.Removed = res.Removed
		e.HashBefore = res.HashBefore
		e.HashAfter = res.HashAfter
	}
	return e
}

// Status classifies a patch outcome.
func Status(res *patch.Result, err error) string {
	switch {
	case err != nil && patch.IsSkip(err):
		return StatusSkipped
	case err != nil:
		return StatusFailed
	case res == nil:
		return StatusFailed
	case res.Written:
		return StatusPatched
	case res.Changed:
		return StatusPreview
	default:
		return StatusUnchanged
	}
}
