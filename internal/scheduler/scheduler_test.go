package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/salestream/internal/clock"
	"github.com/smallbiznis/salestream/internal/config"
	"github.com/smallbiznis/salestream/internal/migration"
	"github.com/smallbiznis/salestream/internal/refresh"
	runlogdomain "github.com/smallbiznis/salestream/internal/runlog/domain"
	runlogrepo "github.com/smallbiznis/salestream/internal/runlog/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const feedHeader = "Order ID,Product ID,Customer ID,Product Name,Category,Region,Date of Sale,Quantity Sold,Unit Price,Discount,Shipping Cost,Payment Method,Customer Name,Customer Email,Customer Address"

func testFeedFile(t *testing.T) string {
	t.Helper()
	row := strings.Join([]string{
		"ORD-1", "PRD-1", "CUS-1", "Desk Lamp", "Home", "North",
		"2024-03-05", "2", "180.00", "0.10", "9.99", "Credit Card",
		"Ada Lovelace", "ada@example.com", `"12 Analytical Way, London"`,
	}, ",")
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(feedHeader+"\n"+row+"\n"), 0o644))
	return path
}

func newTestScheduler(t *testing.T, interval time.Duration) (*Scheduler, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.Provision(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	orch := refresh.New(refresh.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewSystemClock(),
		RunLogs: runlogrepo.Provide(),
	})

	holder, err := config.NewIngestConfigHolder()
	require.NoError(t, err)
	cfg := holder.Get()
	cfg.SourcePath = testFeedFile(t)
	cfg.Mode = "append"
	cfg.WindowSize = 100
	cfg.RefreshInterval = interval
	require.NoError(t, holder.Store(cfg))

	return New(Params{
		Log:          zap.NewNop(),
		Clock:        clock.NewSystemClock(),
		AppCfg:       config.Config{},
		Holder:       holder,
		Orchestrator: orch,
	}), db
}

func runCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&runlogdomain.RunLog{}).Count(&n).Error)
	return n
}

func TestRunOnce(t *testing.T) {
	s, db := newTestScheduler(t, time.Hour)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, int64(1), runCount(t, db))
	var run runlogdomain.RunLog
	require.NoError(t, db.Take(&run).Error)
	assert.Equal(t, runlogdomain.RunStatusSuccess, run.Status)
}

func TestRunOnceRejectsOverlap(t *testing.T) {
	s, _ := newTestScheduler(t, time.Hour)

	s.busy.Store(true)
	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInFlight)
	s.busy.Store(false)

	// Guard released: the next attempt runs normally.
	require.NoError(t, s.RunOnce(context.Background()))
}

func TestSchedulerRunsOnSchedule(t *testing.T) {
	s, db := newTestScheduler(t, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool {
		return runCount(t, db) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	// Stop waited for the loop: the count is stable afterwards.
	n := runCount(t, db)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, runCount(t, db))
}

func TestStopImmediatelyAfterStart(t *testing.T) {
	s, db := newTestScheduler(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	// The loop always performs its first run before checking the stop
	// channel, so Stop must block until that run has committed.
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int64(1), runCount(t, db))
}

func TestStopWithoutStart(t *testing.T) {
	s, _ := newTestScheduler(t, time.Hour)
	require.NoError(t, s.Stop(context.Background()))
}

func TestStopHonorsContextDeadline(t *testing.T) {
	s, _ := newTestScheduler(t, time.Hour)

	// Simulate a loop that never finishes.
	s.wg.Add(1)
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
