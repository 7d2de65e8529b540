package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "projectwatch.db", cfg.Store.Path)
	assert.Equal(t, 4, cfg.Extract.Workers)
	assert.Equal(t, 120, cfg.Extract.TimeoutSecs)
	assert.InDelta(t, 0.30, cfg.Scoring.TimelineWeight, 0.001)
	assert.InDelta(t, 0.25, cfg.Scoring.BudgetWeight, 0.001)
	assert.InDelta(t, 0.20, cfg.Scoring.ProgressWeight, 0.001)
	assert.InDelta(t, 0.15, cfg.Scoring.DisputeWeight, 0.001)
	assert.InDelta(t, 0.10, cfg.Scoring.AuditWeight, 0.001)
	assert.InDelta(t, 6, cfg.Scoring.TimelineThresholdMonths, 0.001)
	assert.InDelta(t, 0.20, cfg.Scoring.BudgetThresholdRatio, 0.001)
	assert.InDelta(t, 90, cfg.Scoring.ProgressThresholdDays, 0.001)
	assert.Equal(t, "submissions", cfg.Manual.Dir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "@daily", cfg.Watch.Schedule)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/projects
extract:
  workers: 8
log:
  level: debug
  format: console
server:
  port: 9090
`
	cwd, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/projects", cfg.Store.DatabaseURL)
	assert.Equal(t, 8, cfg.Extract.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.30, cfg.Scoring.TimelineWeight, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	cwd, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(cwd, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PROJECTWATCH_STORE_DRIVER", "postgres")
	t.Setenv("PROJECTWATCH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("PROJECTWATCH_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// validDefaults returns a Config with the defaults needed by validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "projectwatch.db"
	cfg.Extract.Workers = 4
	cfg.Extract.TimeoutSecs = 120
	cfg.Scoring.TimelineWeight = 0.30
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRun_OK(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_SqliteNeedsPath(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Path = ""

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}

func TestValidateRun_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/projects"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mongo"

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateWorkerBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Extract.Workers = 0
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract.workers must be between 1 and 32")

	cfg.Extract.Workers = 33
	err = cfg.Validate("run")
	require.Error(t, err)

	cfg.Extract.Workers = 32
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateNegativeWeight(t *testing.T) {
	cfg := validDefaults()
	cfg.Scoring.BudgetWeight = -0.1

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring weights must be >= 0")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
