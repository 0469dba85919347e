package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/stockpredictor/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"
)

// stubConn is a minimal driver that records transaction boundaries and executed
// statements, so transactional behavior can be asserted without a database.
type stubConn struct {
	mu     sync.Mutex
	events []string
}

func (c *stubConn) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *stubConn) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return &stubStmt{conn: c, query: query}, nil
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	c.record("begin")
	return &stubTx{conn: c}, nil
}

type stubStmt struct {
	conn  *stubConn
	query string
}

func (s *stubStmt) Close() error  { return nil }
func (s *stubStmt) NumInput() int { return -1 }

func (s *stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.conn.record("exec " + s.query)
	return driver.RowsAffected(1), nil
}

func (s *stubStmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, errors.New("stub: queries not supported")
}

type stubTx struct {
	conn *stubConn
}

func (t *stubTx) Commit() error {
	t.conn.record("commit")
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.record("rollback")
	return nil
}

type stubConnector struct {
	conn *stubConn
}

func (c *stubConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c *stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return nil, errors.New("stub: use connector") }

func newStubDB(t *testing.T, permits int64) (*DB, *stubConn) {
	t.Helper()
	conn := &stubConn{}
	sqlxDB := sqlx.NewDb(sql.OpenDB(&stubConnector{conn: conn}), "postgres")
	t.Cleanup(func() { sqlxDB.Close() })
	return &DB{DB: sqlxDB, sem: semaphore.NewWeighted(permits)}, conn
}

func hasEvent(events []string, prefix string) bool {
	for _, e := range events {
		if strings.HasPrefix(e, prefix) {
			return true
		}
	}
	return false
}

func TestWithTxCommits(t *testing.T) {
	db, conn := newStubDB(t, 2)

	err := db.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE products SET is_active = FALSE")
		return err
	})
	require.NoError(t, err)

	events := conn.snapshot()
	assert.Equal(t, "begin", events[0])
	assert.True(t, hasEvent(events, "exec UPDATE products"))
	assert.Equal(t, "commit", events[len(events)-1])
	assert.False(t, hasEvent(events, "rollback"))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, conn := newStubDB(t, 2)
	boom := errors.New("boom")

	err := db.WithTx(context.Background(), func(tx *sqlx.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	events := conn.snapshot()
	assert.True(t, hasEvent(events, "rollback"))
	assert.False(t, hasEvent(events, "commit"))
}

func TestWithTxReleasesSemaphore(t *testing.T) {
	// One permit: a leaked acquisition would stall the second call.
	db, _ := newStubDB(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		err := db.WithTx(ctx, func(tx *sqlx.Tx) error { return nil })
		require.NoError(t, err, "call %d", i)
	}
}

func TestForecastUpsertBatchRunsInTransaction(t *testing.T) {
	db, conn := newStubDB(t, 2)
	repo := NewForecastRepository(db)

	rows := []domain.Forecast{
		{ProductID: 1, ForecastDate: time.Now(), PredictedQuantity: 5, ConfidenceScore: decimal.NewFromInt(80), ModelVersion: "v1.0", GeneratedAt: time.Now()},
		{ProductID: 1, ForecastDate: time.Now().AddDate(0, 0, 1), PredictedQuantity: 6, ConfidenceScore: decimal.NewFromInt(80), ModelVersion: "v1.0", GeneratedAt: time.Now()},
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), rows))

	events := conn.snapshot()
	assert.Equal(t, "begin", events[0])
	assert.True(t, hasEvent(events, "exec"))
	assert.Equal(t, "commit", events[len(events)-1])

	// An empty horizon never opens a transaction.
	conn.mu.Lock()
	conn.events = nil
	conn.mu.Unlock()
	require.NoError(t, repo.UpsertBatch(context.Background(), nil))
	assert.Empty(t, conn.snapshot())
}

func TestRecommendationUpsertRunsInTransaction(t *testing.T) {
	db, conn := newStubDB(t, 2)
	repo := NewRecommendationRepository(db)

	rec := &domain.Recommendation{
		ProductID:      42,
		AnalysisDate:   time.Now(),
		DailyBurnRate:  decimal.RequireFromString("2.5"),
		RunwayDays:     2,
		ActionCategory: domain.ActionOrderToday,
		PriorityScore:  decimal.RequireFromString("93.71"),
		Metadata:       domain.Metadata{"in_transit_quantity": 0},
	}
	require.NoError(t, repo.Upsert(context.Background(), rec))

	events := conn.snapshot()
	assert.Equal(t, "begin", events[0])
	assert.True(t, hasEvent(events, "exec"))
	assert.Equal(t, "commit", events[len(events)-1])
}
