package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxConns)
	assert.Equal(t, 128, cfg.Matching.Dimensions)
	assert.Equal(t, 0.6, cfg.Matching.Threshold)
	assert.Equal(t, "UTC", cfg.Stats.Timezone)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  api_key: secret
database:
  host: db.internal
  name: occupancy
  user: occ
  password: pw
matching:
  dimensions: 256
  threshold: 0.5
stats:
  timezone: Europe/Berlin
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 256, cfg.Matching.Dimensions)
	assert.Equal(t, 0.5, cfg.Matching.Threshold)
	assert.Equal(t, "Europe/Berlin", cfg.Stats.Timezone)

	// Unset fields still get defaults.
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OCC_SERVER_PORT", "7777")
	t.Setenv("OCC_DB_HOST", "env-db")
	t.Setenv("OCC_MATCH_THRESHOLD", "0.45")
	t.Setenv("OCC_STATS_TIMEZONE", "Asia/Tokyo")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
database:
  host: file-db
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Environment wins over the file.
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.Equal(t, 0.45, cfg.Matching.Threshold)
	assert.Equal(t, "Asia/Tokyo", cfg.Stats.Timezone)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "localhost", Port: 5432, Name: "occupancy", User: "occ", Password: "pw"}
	assert.Equal(t, "postgres://occ:pw@localhost:5432/occupancy?sslmode=disable", d.DSN())
}
