package metrics

import (
	"github.com/smallbiznis/salestream/internal/config"
	"go.uber.org/fx"
)

// Module pins the ingestion metrics singleton to the application's service
// and environment labels. It must run before any component records a
// metric, otherwise the first lazy Ingest() call wins with defaults.
var Module = fx.Module("metrics",
	fx.Invoke(func(cfg config.Config) {
		IngestWithConfig(Config{
			ServiceName: cfg.AppName,
			Environment: cfg.Environment,
		})
	}),
)
