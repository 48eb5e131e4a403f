package main

import (
	"context"
	"flag"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salestream/internal/clock"
	"github.com/smallbiznis/salestream/internal/config"
	"github.com/smallbiznis/salestream/internal/logger"
	obsmetrics "github.com/smallbiznis/salestream/internal/observability/metrics"
	"github.com/smallbiznis/salestream/internal/refresh"
	"github.com/smallbiznis/salestream/internal/runlog"
	"github.com/smallbiznis/salestream/internal/scheduler"
	"github.com/smallbiznis/salestream/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	var (
		file   = flag.String("file", "", "source file path (overrides ingest.yml)")
		mode   = flag.String("mode", "", "append or overwrite (overrides ingest.yml)")
		window = flag.Int("window", 0, "rows per window (overrides ingest.yml)")
		once   = flag.Bool("once", false, "run a single refresh and exit")
	)
	flag.Parse()

	opts := []fx.Option{
		config.Module,
		logger.Module,
		obsmetrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		runlog.Module,
		refresh.Module,

		fx.Invoke(func(holder *config.IngestConfigHolder) error {
			return applyFlags(holder, *file, *mode, *window, *once)
		}),

		scheduler.Module,
	}

	if *once {
		opts = append(opts, fx.Invoke(RunOnce))
	}

	app := fx.New(opts...)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

// applyFlags layers CLI overrides onto the loaded ingest config. Serve mode
// implies the recurring schedule; one-shot mode disables it.
func applyFlags(holder *config.IngestConfigHolder, file, mode string, window int, once bool) error {
	cfg := holder.Get()
	if file != "" {
		cfg.SourcePath = file
	}
	if mode != "" {
		cfg.Mode = mode
	}
	if window > 0 {
		cfg.WindowSize = window
	}
	cfg.ScheduleEnabled = !once
	return holder.Store(cfg)
}

// RunOnce drives a single refresh and exits with a non-zero code when the
// run fails.
func RunOnce(lc fx.Lifecycle, sched *scheduler.Scheduler, shutdowner fx.Shutdowner, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				code := 0
				if err := sched.RunOnce(context.Background()); err != nil {
					log.Error("refresh failed", zap.Error(err))
					code = 1
				}
				_ = shutdowner.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
	})
}
