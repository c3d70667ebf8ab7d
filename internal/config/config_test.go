package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.Store.Directory)
	assert.Equal(t, "series", cfg.Store.Base)
	assert.Equal(t, int64(100), cfg.Store.CoarseFactor)
	assert.Equal(t, 20*time.Second, cfg.Store.FlushInterval)
	assert.False(t, cfg.Store.ForceOrdering)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PTS_STORE_DIRECTORY", "/var/lib/pts")
	t.Setenv("PTS_STORE_BASE", "sensors")
	t.Setenv("PTS_STORE_FORCE_ORDERING", "true")
	t.Setenv("PTS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/pts", cfg.Store.Directory)
	assert.Equal(t, "sensors", cfg.Store.Base)
	assert.True(t, cfg.Store.ForceOrdering)
	assert.Equal(t, "debug", cfg.Log.Level)
}
