package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonesrussell/goingest/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_DEBUG", "SERVER_HOST", "SERVER_PORT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "REDIS_EVENTS_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

const minimalYAML = `
database:
  host: localhost
  user: ingest
  dbname: goingest
`

func TestLoad_AppliesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, minimalYAML)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8060, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 2, cfg.Dedup.FuzzyTitleMaxDistance)
	assert.InDelta(t, 0.5, cfg.Dedup.PhraseOverlapThreshold, 0.001)
	assert.Equal(t, 500, cfg.Dedup.FingerprintWindow)
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
debug: true
server:
  host: 127.0.0.1
  port: 9000
database:
  host: db.internal
  port: 5433
  user: ingest
  dbname: goingest
dedup:
  fuzzy_title_max_distance: 3
  phrase_overlap_threshold: 0.6
  fingerprint_window: 100
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 3, cfg.Dedup.FuzzyTitleMaxDistance)
	assert.InDelta(t, 0.6, cfg.Dedup.PhraseOverlapThreshold, 0.001)
	assert.Equal(t, 100, cfg.Dedup.FingerprintWindow)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, minimalYAML)

	t.Setenv("DB_HOST", "env-db")
	t.Setenv("SERVER_PORT", "8123")
	t.Setenv("REDIS_EVENTS_ENABLED", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, 8123, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_MissingFileFallsBackToEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "envhost")
	t.Setenv("DB_USER", "ingest")
	t.Setenv("DB_NAME", "goingest")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "envhost", cfg.Database.Host)
}

func TestLoad_ValidationFailures(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing database host",
			yaml: "database:\n  user: ingest\n  dbname: goingest\n",
		},
		{
			name: "missing database user",
			yaml: "database:\n  host: localhost\n  dbname: goingest\n",
		},
		{
			name: "threshold out of range",
			yaml: minimalYAML + "dedup:\n  phrase_overlap_threshold: 1.5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfigFile(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}
