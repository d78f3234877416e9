package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/risk-sentinel/internal/enrich"
	"github.com/jonathan/risk-sentinel/internal/oracle"
	"github.com/jonathan/risk-sentinel/internal/risk"
)

func TestLoadConfig_MergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"concurrency": 5, "port": 9999}`), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, int64(5), cfg.Concurrency, "file values win")
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, oracle.DefaultTextModel, cfg.TextModel)
	assert.Equal(t, risk.DefaultTriageLow, cfg.TriageLow)
	assert.Equal(t, risk.DefaultTriageHigh, cfg.TriageHigh)
	assert.Equal(t, enrich.DefaultPrefilterFloor, cfg.PrefilterFloor)
	assert.Equal(t, 60, cfg.RetentionMinutes)
}

func TestLoadConfig_EnvSuppliesAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.APIKey)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"api_key": "file-key"}`), 0o644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.APIKey, "file key wins over the environment")
}
