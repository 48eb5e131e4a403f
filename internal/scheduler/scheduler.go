package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smallbiznis/salestream/internal/clock"
	"github.com/smallbiznis/salestream/internal/config"
	obsmetrics "github.com/smallbiznis/salestream/internal/observability/metrics"
	"github.com/smallbiznis/salestream/internal/refresh"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrRunInFlight reports that a refresh was requested while another one was
// still running. The scheduler's non-overlap policy is skip-if-busy: the
// tick is dropped and the next tick tries again.
var ErrRunInFlight = errors.New("refresh run already in flight")

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	AppCfg       config.Config
	Holder       *config.IngestConfigHolder
	Orchestrator *refresh.Orchestrator
}

// Scheduler re-invokes the refresh orchestrator at a fixed period for as
// long as the process runs. Runs are strictly serialized; stopping waits
// for the in-flight run to finish.
type Scheduler struct {
	log    *zap.Logger
	clock  clock.Clock
	appCfg config.Config
	holder *config.IngestConfigHolder
	orch   *refresh.Orchestrator

	busy atomic.Bool
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:    p.Log.Named("scheduler"),
		clock:  p.Clock,
		appCfg: p.AppCfg,
		holder: p.Holder,
		orch:   p.Orchestrator,
		stop:   make(chan struct{}),
	}
}

// RunOnce performs a single refresh from the current ingest config. It is
// the unit both the timer loop and the one-shot CLI drive; the busy guard
// keeps them from ever overlapping.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrRunInFlight
	}
	defer s.busy.Store(false)

	cfg := s.holder.Get()
	mode, err := refresh.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	_, err = s.orch.Refresh(ctx, refresh.Request{
		Path:            cfg.SourcePath,
		Mode:            mode,
		WindowSize:      cfg.WindowSize,
		ProvisionSchema: s.appCfg.ProvisionSchema,
	})
	return err
}

// Start launches the recurring loop in its own goroutine. The WaitGroup is
// incremented here, not in the loop, so a Stop issued immediately after
// Start still waits for the first run instead of returning on a WaitGroup
// the loop has not joined yet.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.runForever(ctx)
}

// runForever runs one refresh immediately, then one per interval until the
// context is cancelled or Stop is called. A failed run is logged and
// retried only at the next tick; a tick that fires while a run is still in
// flight is skipped.
func (s *Scheduler) runForever(ctx context.Context) {
	defer s.wg.Done()

	interval := s.holder.Get().RefreshInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			if errors.Is(err, ErrRunInFlight) {
				obsmetrics.Ingest().IncTickSkipped()
				s.log.Warn("tick skipped, run still in flight")
			} else {
				s.log.Warn("scheduled run failed", zap.Error(err))
			}
		}

		// Drop the tick that fired while the run was executing so a slow
		// run is not immediately followed by a catch-up run.
		select {
		case <-ticker.C:
			obsmetrics.Ingest().IncTickSkipped()
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
		}

		if next := s.holder.Get().RefreshInterval; next != interval {
			interval = next
			ticker.Reset(interval)
		}
	}
}

// Stop requests shutdown and waits for the in-flight run to finish, or for
// ctx to expire. All pool connections used by the loop are released by the
// time it returns.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
