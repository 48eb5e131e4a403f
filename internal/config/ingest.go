package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// IngestConfig carries the tunables of the ingestion pipeline. It lives in
// ingest.yml so operators can retune a running scheduler without a restart.
type IngestConfig struct {
	SourcePath      string        `mapstructure:"sourcePath"`
	Mode            string        `mapstructure:"mode"`
	WindowSize      int           `mapstructure:"windowSize"`
	RefreshInterval time.Duration `mapstructure:"refreshInterval"`
	ScheduleEnabled bool          `mapstructure:"scheduleEnabled"`
}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		SourcePath:      "sales.csv",
		Mode:            "append",
		WindowSize:      1000,
		RefreshInterval: time.Hour,
		ScheduleEnabled: false,
	}
}

type IngestConfigHolder struct {
	current atomic.Value // holds IngestConfig
}

func NewIngestConfigHolder() (*IngestConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ingest")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/salestream/config")
	v.AddConfigPath("/etc/salestream")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SALESTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultIngestConfig()
	v.SetDefault("ingest.sourcePath", defaults.SourcePath)
	v.SetDefault("ingest.mode", defaults.Mode)
	v.SetDefault("ingest.windowSize", defaults.WindowSize)
	v.SetDefault("ingest.refreshInterval", defaults.RefreshInterval)
	v.SetDefault("ingest.scheduleEnabled", defaults.ScheduleEnabled)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg IngestConfig
	if err := v.UnmarshalKey("ingest", &cfg); err != nil {
		return nil, err
	}
	if err := validateIngestConfig(cfg); err != nil {
		return nil, err
	}

	holder := &IngestConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated IngestConfig
		if err := v.UnmarshalKey("ingest", &updated); err != nil {
			log.Printf("[ingest-config] reload failed: %v", err)
			return
		}
		if err := validateIngestConfig(updated); err != nil {
			log.Printf("[ingest-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[ingest-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *IngestConfigHolder) Get() IngestConfig {
	return h.current.Load().(IngestConfig)
}

// Store replaces the held config. Used by the CLI to apply flag overrides.
func (h *IngestConfigHolder) Store(cfg IngestConfig) error {
	if err := validateIngestConfig(cfg); err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}

func validateIngestConfig(cfg IngestConfig) error {
	switch cfg.Mode {
	case "append", "overwrite":
	default:
		return errors.New("ingest.mode must be append or overwrite")
	}
	if cfg.WindowSize <= 0 {
		return errors.New("ingest.windowSize must be positive")
	}
	if cfg.RefreshInterval <= 0 {
		return errors.New("ingest.refreshInterval must be positive")
	}
	return nil
}
