package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Planner.MaxCTEDepth)
	assert.Equal(t, 3, cfg.Planner.MaxHeterogeneousVLPLength)
	assert.Equal(t, 60*time.Second, cfg.Catalog.RefreshInterval)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("CYPHERGRAPH_MAX_CTE_DEPTH", "42")
	t.Setenv("CYPHERGRAPH_CATALOG_PATH", "/etc/cyphergraph/catalog.yaml")
	t.Setenv("CYPHERGRAPH_CACHE_ENABLED", "false")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 42, cfg.Planner.MaxCTEDepth)
	assert.Equal(t, "/etc/cyphergraph/catalog.yaml", cfg.Catalog.Path)
	assert.False(t, cfg.Cache.Enabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Planner.MaxCTEDepth = 0
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Logging.Level = "TRACE"
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Catalog.Path = ""
	assert.Error(t, cfg.Validate())
}

func TestGetEnvDurationParsesPlainSeconds(t *testing.T) {
	os.Unsetenv("CYPHERGRAPH_CACHE_TTL")
	t.Setenv("CYPHERGRAPH_CACHE_TTL", "30")
	cfg := LoadFromEnv()
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}
