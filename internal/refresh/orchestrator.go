package refresh

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/salestream/internal/catalog"
	"github.com/smallbiznis/salestream/internal/clock"
	"github.com/smallbiznis/salestream/internal/ingest"
	"github.com/smallbiznis/salestream/internal/migration"
	obsmetrics "github.com/smallbiznis/salestream/internal/observability/metrics"
	runlogdomain "github.com/smallbiznis/salestream/internal/runlog/domain"
	"github.com/smallbiznis/salestream/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Mode string

const (
	ModeAppend    Mode = "append"
	ModeOverwrite Mode = "overwrite"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAppend, ModeOverwrite:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Request describes one refresh run over one source file.
type Request struct {
	Path            string
	Mode            Mode
	WindowSize      int
	ProvisionSchema bool
}

// Result is returned to the external driver on success.
type Result struct {
	RowsProcessed int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Duration      time.Duration
}

// Tables owned by ingestion, in truncation dependency order.
var truncateOrder = []string{
	"order_items",
	"orders",
	"products",
	"customers",
	"payment_methods",
	"categories",
	"regions",
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	RunLogs runlogdomain.Repository
}

// Orchestrator drives one full ingestion pass: schema check, optional
// full-dataset reset, streaming ingest, and the RunLog audit row it owns
// end-to-end. Only one orchestrator run may write to the ingestion tables
// at a time; this is an operational constraint on deployments, not
// enforced by a lock.
type Orchestrator struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	runLogs runlogdomain.Repository
}

func New(p Params) *Orchestrator {
	return &Orchestrator{
		db:      p.DB,
		log:     p.Log.Named("refresh"),
		genID:   p.GenID,
		clock:   p.Clock,
		runLogs: p.RunLogs,
	}
}

// Refresh executes one run. On failure the RunLog row is finalized to
// failed with the rows committed before the failing window; committed
// windows stay committed. Re-running the same file is safe by construction
// of the upsert and delete-then-insert semantics.
func (o *Orchestrator) Refresh(ctx context.Context, req Request) (Result, error) {
	runID := uuid.NewString()
	log := o.log.With(
		zap.String("run_id", runID),
		zap.String("source", req.Path),
		zap.String("mode", string(req.Mode)),
	)
	metrics := obsmetrics.Ingest()
	startedAt := o.clock.Now()

	if err := o.ping(ctx); err != nil {
		metrics.IncRun(string(runlogdomain.RunStatusFailed))
		return Result{}, err
	}

	if req.ProvisionSchema {
		if err := migration.Provision(o.db); err != nil {
			metrics.IncRun(string(runlogdomain.RunStatusFailed))
			return Result{}, &SchemaError{Err: err}
		}
	}

	run := &runlogdomain.RunLog{
		ID:        o.genID.Generate(),
		Source:    req.Path,
		Status:    runlogdomain.RunStatusProcessing,
		StartedAt: startedAt,
		Metadata: datatypes.JSONMap{
			"run_id":      runID,
			"mode":        string(req.Mode),
			"window_size": req.WindowSize,
		},
	}
	if err := o.runLogs.Insert(ctx, o.db, run); err != nil {
		metrics.IncRun(string(runlogdomain.RunStatusFailed))
		return Result{}, fmt.Errorf("insert run log: %w", err)
	}
	log.Info("run started")

	res, err := o.execute(ctx, req, log)
	run.RowsProcessed = res.RowsProcessed

	if err != nil {
		run.Status = runlogdomain.RunStatusFailed
		run.Error = err.Error()
	} else {
		run.Status = runlogdomain.RunStatusSuccess
	}
	finishedAt := o.clock.Now()
	run.FinishedAt = &finishedAt

	// Best-effort: a failure to write the audit row is logged and never
	// masks the run's own outcome.
	if ferr := o.runLogs.Finalize(ctx, o.db, run); ferr != nil {
		log.Error("finalize run log failed", zap.Error(ferr))
	}

	duration := finishedAt.Sub(startedAt)
	metrics.IncRun(string(run.Status))
	metrics.ObserveRunDuration(duration)

	if err != nil {
		log.Warn("run failed",
			zap.Int64("rows_committed", res.RowsProcessed),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return Result{}, err
	}

	log.Info("run succeeded",
		zap.Int64("rows", res.RowsProcessed),
		zap.Duration("duration", duration),
	)
	return Result{
		RowsProcessed: res.RowsProcessed,
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		Duration:      duration,
	}, nil
}

func (o *Orchestrator) execute(ctx context.Context, req Request, log *zap.Logger) (ingest.Result, error) {
	if req.Mode == ModeOverwrite {
		if err := o.truncate(ctx); err != nil {
			return ingest.Result{}, err
		}
		log.Info("dataset truncated")
	}

	src, err := os.Open(req.Path)
	if err != nil {
		return ingest.Result{}, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	resolver := catalog.NewResolver(o.genID)
	writer := ingest.NewWriter(o.genID, resolver, log)
	batcher := ingest.NewBatcher(o.db, writer, req.WindowSize, o.clock, log)

	return batcher.Run(ctx, src)
}

// truncate clears all ingestion tables in dependency order inside one
// transaction; on any failure prior data is preserved by rollback.
func (o *Orchestrator) truncate(ctx context.Context) error {
	var failed string
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range truncateOrder {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				failed = table
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &TruncateError{Table: failed, Err: err}
	}
	return nil
}

func (o *Orchestrator) ping(ctx context.Context) error {
	sqlDB, err := o.db.DB()
	if err != nil {
		return &ConnectionError{Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

// History lists run audit rows newest-first; the only state surface the
// core exposes to callers wanting run history.
func (o *Orchestrator) History(ctx context.Context, page pagination.Pagination) ([]*runlogdomain.RunLog, *pagination.PageInfo, error) {
	return o.runLogs.List(ctx, o.db, page)
}
