package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "salestream", cfg.AppName)
	assert.Equal(t, "postgres", cfg.DBType)
	assert.True(t, cfg.ProvisionSchema)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("DATABASE_MAX_OPEN_CONN", "3")
	t.Setenv("PROVISION_SCHEMA", "off")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, 3, cfg.DBMaxOpenConn)
	assert.False(t, cfg.ProvisionSchema)
}

func TestIngestConfigDefaults(t *testing.T) {
	holder, err := NewIngestConfigHolder()
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "append", cfg.Mode)
	assert.Equal(t, 1000, cfg.WindowSize)
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
	assert.False(t, cfg.ScheduleEnabled)
}

func TestIngestConfigValidation(t *testing.T) {
	holder, err := NewIngestConfigHolder()
	require.NoError(t, err)
	cfg := holder.Get()

	bad := cfg
	bad.Mode = "merge"
	assert.Error(t, holder.Store(bad))

	bad = cfg
	bad.WindowSize = 0
	assert.Error(t, holder.Store(bad))

	bad = cfg
	bad.RefreshInterval = 0
	assert.Error(t, holder.Store(bad))

	// Rejected stores leave the held config untouched.
	assert.Equal(t, cfg, holder.Get())

	good := cfg
	good.Mode = "overwrite"
	good.WindowSize = 250
	require.NoError(t, holder.Store(good))
	assert.Equal(t, good, holder.Get())
}
