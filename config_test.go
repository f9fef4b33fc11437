package ygggo_formsql

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formsql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9090"
submit_path: /forms
request_timeout: 5s
destinations:
  - sqlite:///var/lib/forms.db
  - mysql://app:secret@db/forms
pool:
  max_open: 4
  conn_max_lifetime: 10m
sqlite:
  journal_mode: DELETE
logging:
  level: debug
  format: text
telemetry:
  enabled: true
metrics:
  enabled: true
template_cache_size: 0
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "/forms", cfg.SubmitPath)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"sqlite:///var/lib/forms.db", "mysql://app:secret@db/forms"}, cfg.Destinations)
	assert.Equal(t, 4, cfg.Pool.MaxOpen)
	assert.Equal(t, 5, cfg.Pool.MaxIdle) // untouched default
	assert.Equal(t, 10*time.Minute, cfg.Pool.ConnMaxLifetime)
	assert.Equal(t, "DELETE", cfg.SQLite.JournalMode)
	assert.Equal(t, "NORMAL", cfg.SQLite.Synchronous)
	assert.Equal(t, LoggingConfig{Level: "debug", Format: "text"}, cfg.Logging)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "ygggo_formsql", cfg.Telemetry.ServiceName)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 0, cfg.TemplateCacheSize)

	opts := cfg.OpenOptions()
	assert.True(t, opts.Telemetry)
	assert.Equal(t, cfg.Pool, opts.Pool)
	hc := cfg.HandlerConfig()
	assert.Equal(t, "/forms", hc.SubmitPath)
	assert.True(t, hc.Telemetry)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnv_Overrides(t *testing.T) {
	t.Setenv("YGGGO_FORMSQL_LISTEN", "127.0.0.1:8181")
	t.Setenv("YGGGO_FORMSQL_DESTINATIONS", " sqlite://:memory: , mysql://root@db/forms ,")
	t.Setenv("YGGGO_FORMSQL_POOL_MAX_OPEN", "3")
	t.Setenv("YGGGO_FORMSQL_POOL_CONN_MAX_IDLE_TIME", "90s")
	t.Setenv("YGGGO_FORMSQL_MAX_BODY_BYTES", "2048")
	t.Setenv("YGGGO_FORMSQL_TELEMETRY_ENABLED", "true")
	t.Setenv("YGGGO_FORMSQL_SLOW_QUERY_THRESHOLD", "250ms")
	t.Setenv("YGGGO_FORMSQL_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8181", cfg.Listen)
	assert.Equal(t, []string{"sqlite://:memory:", "mysql://root@db/forms"}, cfg.Destinations)
	assert.Equal(t, 3, cfg.Pool.MaxOpen)
	assert.Equal(t, 90*time.Second, cfg.Pool.ConnMaxIdleTime)
	assert.Equal(t, int64(2048), cfg.MaxBodyBytes)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnv_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("YGGGO_FORMSQL_POOL_MAX_OPEN", "many")
	t.Setenv("YGGGO_FORMSQL_REQUEST_TIMEOUT", "soon")
	t.Setenv("YGGGO_FORMSQL_METRICS_ENABLED", "maybe")

	cfg := DefaultConfig()
	err := applyEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YGGGO_FORMSQL_POOL_MAX_OPEN")
	assert.Contains(t, err.Error(), "YGGGO_FORMSQL_REQUEST_TIMEOUT")
	assert.Contains(t, err.Error(), "YGGGO_FORMSQL_METRICS_ENABLED")
	assert.Equal(t, 10, cfg.Pool.MaxOpen)
}
