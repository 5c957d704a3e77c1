// Package ledger keeps a local SQLite record of every region run, successful
// or not, so past runs can be listed without walking output directories.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const createRunsTable = `CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	region       TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	output_dir   TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	finished_at  TEXT NOT NULL,
	invalid_rows INTEGER NOT NULL,
	crossings    INTEGER NOT NULL,
	summary      BLOB NOT NULL
)`

// Ledger is a pipeline.Sink that records run summaries in SQLite.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the ledger database at path.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if path == "" {
		path = "culvert-runs.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Parallel regions deliver concurrently; one writer avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(createRunsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Ledger{db: db, logger: logger}, nil
}

func (l *Ledger) Name() string { return "ledger" }

// Deliver records run. Delivering the same run ID again replaces the entry.
func (l *Ledger) Deliver(ctx context.Context, run domain.RunSummary) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(run_id, region, status, error, output_dir, started_at, finished_at, invalid_rows, crossings, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Region, string(run.Status), run.Error, run.OutputDir,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.InvalidRows, len(run.Results), payload,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.RunID, err)
	}
	return nil
}

// Runs returns up to limit run summaries, most recent first. An empty region
// matches every region; limit <= 0 means no limit.
func (l *Ledger) Runs(ctx context.Context, region string, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, `SELECT summary FROM runs
		WHERE ? = '' OR region = ?
		ORDER BY finished_at DESC, rowid DESC
		LIMIT ?`, region, region, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []domain.RunSummary
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var run domain.RunSummary
		if err := json.Unmarshal(payload, &run); err != nil {
			return nil, fmt.Errorf("decode run summary: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (l *Ledger) Close() error { return l.db.Close() }
