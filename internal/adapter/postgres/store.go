// Package postgres writes crossing results of successful region runs to a
// Postgres table so they can be queried across regions and runs.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const driverName = "pgx"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const createResultsTable = `CREATE TABLE IF NOT EXISTS culvert_results (
	run_id        TEXT NOT NULL,
	region        TEXT NOT NULL,
	barrier_id    TEXT NOT NULL,
	naacc_id      BIGINT NOT NULL,
	lat           DOUBLE PRECISION NOT NULL,
	long          DOUBLE PRECISION NOT NULL,
	county        TEXT NOT NULL,
	flags         INTEGER NOT NULL,
	culvert_area  DOUBLE PRECISION NOT NULL,
	capacity_cms  DOUBLE PRECISION NOT NULL,
	ws_area_sqkm  DOUBLE PRECISION NOT NULL,
	tc_hr         DOUBLE PRECISION NOT NULL,
	cn            DOUBLE PRECISION NOT NULL,
	rp_current    TEXT NOT NULL,
	rp_future     TEXT NOT NULL,
	evaluated_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, barrier_id)
)`

const insertResult = `INSERT INTO culvert_results (
	run_id, region, barrier_id, naacc_id, lat, long, county, flags, culvert_area,
	capacity_cms, ws_area_sqkm, tc_hr, cn, rp_current, rp_future, evaluated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (run_id, barrier_id) DO NOTHING`

// Store is a pipeline.Sink backed by Postgres.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to dsn, verifies the connection and creates the results
// table if needed.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createResultsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create culvert_results table: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Name() string { return "postgres" }

// Deliver inserts every crossing of a successful run in one transaction.
// Redelivering the same run is a no-op.
func (s *Store) Deliver(ctx context.Context, run domain.RunSummary) (retErr error) {
	if !run.Succeeded() || len(run.Results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, r := range run.Results {
		if _, err := tx.ExecContext(ctx, insertResult,
			run.RunID, run.Region, r.BarrierID, int64(r.NAACCID), r.Lat, r.Long, r.County, int64(r.Flags), r.Area,
			r.Capacity, r.WSArea, r.Tc, r.CN, r.RPCurrent.String(), r.RPFuture.String(), run.FinishedAt,
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.BarrierID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("crossing results stored", "region", run.Region, "count", len(run.Results))
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
