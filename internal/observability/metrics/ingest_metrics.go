package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels metrics with the emitting service and environment.
type Config struct {
	ServiceName string
	Environment string
}

// IngestMetrics captures ingestion pipeline health signals.
type IngestMetrics struct {
	runs           *prometheus.CounterVec
	runDuration    prometheus.Observer
	rowsIngested   prometheus.Counter
	windowCommits  prometheus.Counter
	windowFailures prometheus.Counter
	ticksSkipped   prometheus.Counter
}

var (
	ingestMetricsOnce sync.Once
	ingestMetrics     *IngestMetrics
)

// Ingest returns the singleton ingestion metrics registry.
func Ingest() *IngestMetrics {
	return IngestWithConfig(Config{})
}

// IngestWithConfig returns the singleton ingestion metrics registry using config labels.
func IngestWithConfig(cfg Config) *IngestMetrics {
	ingestMetricsOnce.Do(func() {
		ingestMetrics = newIngestMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ingestMetrics
}

// ResetIngestMetricsForTest resets the ingestion metrics singleton for tests.
func ResetIngestMetricsForTest() {
	ingestMetricsOnce = sync.Once{}
	ingestMetrics = nil
}

func newIngestMetrics(registerer prometheus.Registerer, cfg Config) *IngestMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "salestream"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "salestream_refresh_runs_total",
		Help:        "Refresh runs by final status.",
		ConstLabels: constLabels,
	}, []string{"status"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "salestream_refresh_duration_seconds",
		Help:        "End-to-end refresh run latency.",
		Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		ConstLabels: constLabels,
	})
	rowsIngested := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "salestream_rows_ingested_total",
		Help:        "Line-item rows committed across all runs.",
		ConstLabels: constLabels,
	})
	windowCommits := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "salestream_window_commits_total",
		Help:        "Window transactions committed.",
		ConstLabels: constLabels,
	})
	windowFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "salestream_window_failures_total",
		Help:        "Window transactions rolled back.",
		ConstLabels: constLabels,
	})
	ticksSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "salestream_scheduler_ticks_skipped_total",
		Help:        "Scheduler ticks skipped because a run was in flight.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		runs,
		runDuration,
		rowsIngested,
		windowCommits,
		windowFailures,
		ticksSkipped,
	)

	return &IngestMetrics{
		runs:           runs,
		runDuration:    runDuration,
		rowsIngested:   rowsIngested,
		windowCommits:  windowCommits,
		windowFailures: windowFailures,
		ticksSkipped:   ticksSkipped,
	}
}

func (m *IngestMetrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

func (m *IngestMetrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

func (m *IngestMetrics) AddRowsIngested(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsIngested.Add(float64(n))
}

func (m *IngestMetrics) IncWindowCommit() {
	if m == nil {
		return
	}
	m.windowCommits.Inc()
}

func (m *IngestMetrics) IncWindowFailure() {
	if m == nil {
		return
	}
	m.windowFailures.Inc()
}

func (m *IngestMetrics) IncTickSkipped() {
	if m == nil {
		return
	}
	m.ticksSkipped.Inc()
}
