package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DISCORD_TOKEN", "DATABASE_DSN", "DATABASE_URL", "LOG_LEVEL", "LOG_JSON",
		"ADVISORY_LOCK_NAMESPACE", "METRICS_ADDR", "DEBOUNCE_WINDOW_MS", "DEBOUNCE_COOLDOWN_MS",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadFailsFastWithAggregatedProblems(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_TOKEN is required")
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dmw-coordinator", cfg.AdvisoryLockNamespace)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}
