package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub driver ---

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConn struct {
	mu         sync.Mutex
	execs      []string
	args       [][]driver.NamedValue
	committed  int
	rolledBack int
	failPing   bool
	failInsert bool
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return &stubTx{conn: c}, nil }

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return &stubTx{conn: c}, nil
}

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return errors.New("connection refused")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failInsert && strings.HasPrefix(strings.TrimSpace(query), "INSERT") {
		return nil, errors.New("unique violation")
	}
	c.execs = append(c.execs, query)
	c.args = append(c.args, args)
	return driver.RowsAffected(1), nil
}

type stubTx struct{ conn *stubConn }

func (t *stubTx) Commit() error {
	t.conn.committed++
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.rolledBack++
	return nil
}

func useStubDriver(t *testing.T, conn *stubConn) {
	t.Helper()
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	orig := sqlOpen
	sqlOpen = func(_, dsn string) (*sql.DB, error) { return sql.Open(name, dsn) }
	t.Cleanup(func() { sqlOpen = orig })
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRun() domain.RunSummary {
	return domain.RunSummary{
		RunID:      "run-1",
		Region:     "lake",
		Status:     domain.RunSucceeded,
		FinishedAt: time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC),
		Results: []domain.CrossingResult{
			{BarrierID: "lake_1", NAACCID: 101, Capacity: 2.5, RPCurrent: 25, RPFuture: 10},
			{BarrierID: "lake_2", NAACCID: 102, Capacity: 0.1, RPCurrent: domain.FailsSmallestStorm},
		},
	}
}

// --- tests ---

func TestOpen_CreatesTable(t *testing.T) {
	conn := &stubConn{}
	useStubDriver(t, conn)

	s, err := Open(context.Background(), "postgres://test", discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.Len(t, conn.execs, 1)
	assert.Contains(t, conn.execs[0], "CREATE TABLE IF NOT EXISTS culvert_results")
	assert.Equal(t, "postgres", s.Name())
}

func TestOpen_PingFailure(t *testing.T) {
	useStubDriver(t, &stubConn{failPing: true})

	_, err := Open(context.Background(), "postgres://test", discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping postgres")
}

func TestStore_Deliver(t *testing.T) {
	conn := &stubConn{}
	useStubDriver(t, conn)
	s, err := Open(context.Background(), "postgres://test", discardLogger())
	require.NoError(t, err)

	require.NoError(t, s.Deliver(context.Background(), testRun()))

	require.Len(t, conn.execs, 3)
	assert.Contains(t, conn.execs[1], "INSERT INTO culvert_results")
	args := conn.args[2]
	require.Len(t, args, 16)
	assert.Equal(t, "run-1", args[0].Value)
	assert.Equal(t, "lake_2", args[2].Value)
	assert.Equal(t, "fails_smallest", args[13].Value)
	assert.Equal(t, 1, conn.committed)
}

func TestStore_Deliver_SkipsFailedRuns(t *testing.T) {
	conn := &stubConn{}
	useStubDriver(t, conn)
	s, err := Open(context.Background(), "postgres://test", discardLogger())
	require.NoError(t, err)

	run := testRun()
	run.Status = domain.RunFailed
	require.NoError(t, s.Deliver(context.Background(), run))
	assert.Len(t, conn.execs, 1)
	assert.Zero(t, conn.committed)
}

func TestStore_Deliver_RollsBackOnError(t *testing.T) {
	conn := &stubConn{}
	useStubDriver(t, conn)
	s, err := Open(context.Background(), "postgres://test", discardLogger())
	require.NoError(t, err)

	conn.failInsert = true
	err = s.Deliver(context.Background(), testRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert lake_1")
	assert.Equal(t, 1, conn.rolledBack)
	assert.Zero(t, conn.committed)
}
