package ygggo_formsql

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const envPrefix = "YGGGO_FORMSQL_"

// PoolConfig holds the database/sql pool settings applied to every destination.
type PoolConfig struct {
	MaxOpen         int           `yaml:"max_open"`
	MaxIdle         int           `yaml:"max_idle"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// TelemetryConfig toggles OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// MetricsConfig toggles OpenTelemetry metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the service configuration, loaded from YAML and overridden by
// YGGGO_FORMSQL_* environment variables.
type Config struct {
	Listen         string        `yaml:"listen"`
	SubmitPath     string        `yaml:"submit_path"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Destinations are opened eagerly at startup. Others open on first use.
	Destinations []string `yaml:"destinations"`

	Pool        PoolConfig        `yaml:"pool"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Logging     LoggingConfig     `yaml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	HealthCheck HealthCheckConfig `yaml:"health_check"`

	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
	TemplateCacheSize  int           `yaml:"template_cache_size"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:         ":8080",
		SubmitPath:     "/submit",
		MaxBodyBytes:   1 << 20,
		RequestTimeout: 30 * time.Second,
		Pool: PoolConfig{
			MaxOpen:         10,
			MaxIdle:         5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 30 * time.Minute,
		},
		SQLite:      DefaultSQLiteConfig(),
		Logging:     LoggingConfig{Level: "info", Format: "json"},
		Telemetry:   TelemetryConfig{ServiceName: "ygggo_formsql"},
		HealthCheck: DefaultHealthCheckConfig(),

		SlowQueryThreshold: time.Second,
		TemplateCacheSize:  256,
	}
}

// LoadConfig reads a YAML file over DefaultConfig and then applies the
// environment. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with any YGGGO_FORMSQL_* variable that is set.
// Every malformed variable is reported, not just the first.
func applyEnv(cfg *Config) error {
	var result *multierror.Error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("LISTEN", &cfg.Listen)
	str("SUBMIT_PATH", &cfg.SubmitPath)
	if v, ok := os.LookupEnv(envPrefix + "MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%sMAX_BODY_BYTES: %w", envPrefix, err))
		} else {
			cfg.MaxBodyBytes = n
		}
	}
	dur("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	if v, ok := os.LookupEnv(envPrefix + "DESTINATIONS"); ok {
		cfg.Destinations = splitList(v)
	}

	num("POOL_MAX_OPEN", &cfg.Pool.MaxOpen)
	num("POOL_MAX_IDLE", &cfg.Pool.MaxIdle)
	dur("POOL_CONN_MAX_LIFETIME", &cfg.Pool.ConnMaxLifetime)
	dur("POOL_CONN_MAX_IDLE_TIME", &cfg.Pool.ConnMaxIdleTime)

	dur("SQLITE_BUSY_TIMEOUT", &cfg.SQLite.BusyTimeout)
	str("SQLITE_JOURNAL_MODE", &cfg.SQLite.JournalMode)
	str("SQLITE_SYNCHRONOUS", &cfg.SQLite.Synchronous)
	num("SQLITE_CACHE_SIZE", &cfg.SQLite.CacheSize)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	flag("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	str("SERVICE_NAME", &cfg.Telemetry.ServiceName)
	flag("METRICS_ENABLED", &cfg.Metrics.Enabled)

	dur("HEALTH_TIMEOUT", &cfg.HealthCheck.Timeout)
	num("HEALTH_RETRIES", &cfg.HealthCheck.Retries)
	dur("SLOW_QUERY_THRESHOLD", &cfg.SlowQueryThreshold)
	num("TEMPLATE_CACHE_SIZE", &cfg.TemplateCacheSize)

	return result.ErrorOrNil()
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// OpenOptions returns the settings Destinations applies when opening a URL.
func (c Config) OpenOptions() OpenOptions {
	return OpenOptions{Pool: c.Pool, SQLite: c.SQLite, Telemetry: c.Telemetry.Enabled}
}

// HandlerConfig returns the HTTP settings for NewHandler.
func (c Config) HandlerConfig() HandlerConfig {
	return HandlerConfig{
		SubmitPath:     c.SubmitPath,
		MaxBodyBytes:   c.MaxBodyBytes,
		RequestTimeout: c.RequestTimeout,
		ServiceName:    c.Telemetry.ServiceName,
		Telemetry:      c.Telemetry.Enabled,
		HealthCheck:    c.HealthCheck,
	}
}
