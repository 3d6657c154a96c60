// Package history stores run summaries in a SQLite database so results can
// be compared across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/hitrun/packages/core/parser"
	"github.com/abdul-hamid-achik/hitrun/packages/core/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	ignored     INTEGER NOT NULL,
	empty       INTEGER NOT NULL,
	exit_code   INTEGER NOT NULL,
	only_mode   INTEGER NOT NULL,
	aborted     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS blocks (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	file        TEXT NOT NULL,
	line        INTEGER NOT NULL,
	block_id    TEXT NOT NULL,
	description TEXT NOT NULL,
	state       TEXT NOT NULL,
	status      INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

// Run is one stored run summary.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Ignored   int
	Empty     int
	ExitCode  int
	OnlyMode  bool
	Aborted   bool
}

// Block is one stored block outcome.
type Block struct {
	File        string
	Line        int
	ID          string
	Description string
	State       string
	Status      int
	Duration    time.Duration
	Error       string
}

// Store is a SQLite-backed run history.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Open opens or creates the history database. path may be a plain file
// path or use the sqlite:// or sqlite: prefix.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn, err := parseConnectionString(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db, queryTimeout: 30 * time.Second}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save records result as a new run and returns it.
func (s *Store) Save(ctx context.Context, result *runner.Result, startedAt time.Time) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	run := &Run{
		ID:        uuid.NewString(),
		StartedAt: startedAt.UTC(),
		Duration:  result.Duration,
		Passed:    result.Passed,
		Failed:    result.Failed,
		Ignored:   result.Ignored,
		Empty:     result.Empty,
		ExitCode:  result.ExitCode(),
		OnlyMode:  result.OnlyMode,
		Aborted:   result.Aborted,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, passed, failed, ignored, empty, exit_code, only_mode, aborted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(time.RFC3339Nano), run.Duration.Milliseconds(),
		run.Passed, run.Failed, run.Ignored, run.Empty, run.ExitCode, run.OnlyMode, run.Aborted,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO blocks (run_id, file, line, block_id, description, state, status, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare block insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range result.Blocks() {
		if b.State() == parser.StatePending {
			continue
		}
		status := 0
		if b.Response != nil {
			status = b.Response.StatusCode
		}
		errText := ""
		if b.Err != nil {
			errText = b.Err.Error()
		}
		_, err := stmt.ExecContext(ctx,
			run.ID, b.File.Name(), b.Line(), b.Meta.ID, b.Description(),
			b.State().String(), status, b.Duration.Milliseconds(), errText,
		)
		if err != nil {
			return nil, fmt.Errorf("insert block %s: %w", b.Location(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, passed, failed, ignored, empty, exit_code, only_mode, aborted
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  string
			durationMs int64
		)
		err := rows.Scan(&run.ID, &startedAt, &durationMs, &run.Passed, &run.Failed,
			&run.Ignored, &run.Empty, &run.ExitCode, &run.OnlyMode, &run.Aborted)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp %q: %w", run.ID, startedAt, err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// ErrRunNotFound is returned by Blocks for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Blocks returns the block outcomes of a run in execution file order.
func (s *Store) Blocks(ctx context.Context, runID string) ([]Block, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT file, line, block_id, description, state, status, duration_ms, error
		 FROM blocks WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		var (
			b          Block
			durationMs int64
		)
		if err := rows.Scan(&b.File, &b.Line, &b.ID, &b.Description, &b.State, &b.Status, &durationMs, &b.Error); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		b.Duration = time.Duration(durationMs) * time.Millisecond
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return blocks, nil
}

// parseConnectionString accepts sqlite://path, sqlite:path or a bare path.
func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)
	switch {
	case strings.HasPrefix(connStr, "sqlite://"):
		connStr = strings.TrimPrefix(connStr, "sqlite://")
	case strings.HasPrefix(connStr, "sqlite:"):
		connStr = strings.TrimPrefix(connStr, "sqlite:")
	case strings.Contains(connStr, "://"):
		return "", fmt.Errorf("unsupported history database %q: only sqlite is supported", connStr)
	}
	if connStr == "" {
		return "", fmt.Errorf("empty history database path")
	}
	return connStr, nil
}
