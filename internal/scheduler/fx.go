package scheduler

import (
	"context"

	"github.com/smallbiznis/salestream/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Register),
)

// Register starts the recurring loop when scheduling is enabled in the
// ingest config. The loop is stopped gracefully on shutdown.
func Register(lc fx.Lifecycle, holder *config.IngestConfigHolder, sched *Scheduler) {
	if !holder.Get().ScheduleEnabled {
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			sched.Start(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := sched.Stop(ctx)
			cancel()
			return err
		},
	})
}
