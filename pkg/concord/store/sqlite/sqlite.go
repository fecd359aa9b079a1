package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// ledger tables if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	language TEXT,
	tool TEXT,
	sections INTEGER DEFAULT 0,
	sentences INTEGER DEFAULT 0,
	mentions INTEGER DEFAULT 0,
	entities INTEGER DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document_id, started_at);
CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs(content_hash, mode, status);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

const runColumns = `id, document_id, content_hash, mode, status, error, language, tool,
	sections, sentences, mentions, entities, started_at, finished_at`

// RecordRun inserts or replaces a run.
func (s *sqliteStore) RecordRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return internalerr.NewValidation("id", "run id is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (`+runColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	document_id = excluded.document_id,
	content_hash = excluded.content_hash,
	mode = excluded.mode,
	status = excluded.status,
	error = excluded.error,
	language = excluded.language,
	tool = excluded.tool,
	sections = excluded.sections,
	sentences = excluded.sentences,
	mentions = excluded.mentions,
	entities = excluded.entities,
	started_at = excluded.started_at,
	finished_at = excluded.finished_at`,
		r.ID, r.DocumentID, r.ContentHash, string(r.Mode), string(r.Status), r.Error, r.Language, r.Tool,
		r.Sections, r.Sentences, r.Mentions, r.Entities,
		formatTime(r.StartedAt), formatTime(r.FinishedAt),
	)
	return err
}

// GetRun returns a run by ID.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, internalerr.ErrNotFound
	}
	return r, err
}

// ListRuns returns the runs of a document, newest first.
func (s *sqliteStore) ListRuns(ctx context.Context, documentID string, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+runColumns+` FROM runs
WHERE document_id = ?
ORDER BY started_at DESC, id DESC
LIMIT ?`, documentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []store.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LastSuccess returns the newest succeeded run over contentHash in mode.
func (s *sqliteStore) LastSuccess(ctx context.Context, contentHash string, mode store.Mode) (store.Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+runColumns+` FROM runs
WHERE content_hash = ? AND mode = ? AND status = ?
ORDER BY started_at DESC, id DESC
LIMIT 1`, contentHash, string(mode), string(store.StatusSucceeded))
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, false, nil
	}
	if err != nil {
		return store.Run{}, false, err
	}
	return r, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var (
		r                   store.Run
		mode, status        string
		errText, lang, tool sql.NullString
		started, finished   string
	)
	if err := sc.Scan(&r.ID, &r.DocumentID, &r.ContentHash, &mode, &status, &errText, &lang, &tool,
		&r.Sections, &r.Sentences, &r.Mentions, &r.Entities, &started, &finished); err != nil {
		return store.Run{}, err
	}
	r.Mode = store.Mode(mode)
	r.Status = store.Status(status)
	r.Error = errText.String
	r.Language = lang.String
	r.Tool = tool.String
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return r, nil
}

// Timestamps are stored as fixed-width UTC text so that they sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
