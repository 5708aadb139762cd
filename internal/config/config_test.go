package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default().Ledger.Workers, cfg.Ledger.Workers)
	assert.Equal(t, "credit_lines", cfg.Postgres.Table)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ledger":{"workers":8},"postgres":{"enabled":true,"dsn":"postgres://x"}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Ledger.Workers)
	assert.True(t, cfg.Postgres.Enabled)
	assert.Equal(t, "credit_lines", cfg.Postgres.Table, "unset keys keep their default")
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.RulesFile = "rules.hcl"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rules.hcl", loaded.RulesFile)
}
