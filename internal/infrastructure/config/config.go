// Package config loads the service configuration from config.toml and
// RECON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Count session backends
const (
	CountSessionBackendRedis  = "redis"
	CountSessionBackendMemory = "memory"
)

const (
	envPrefix         = "RECON"
	envProduction     = "production"
	defaultJWTSecret  = "stockrecon-development-secret-change-me"
	minProdSecretSize = 32
)

// Config is the whole service configuration. Keys are the mapstructure tags,
// nested by section: database.max_open_conns is RECON_DATABASE_MAX_OPEN_CONNS.
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	Log            LogConfig            `mapstructure:"log"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	CountSession   CountSessionConfig   `mapstructure:"count_session"`
	Outbox         OutboxConfig         `mapstructure:"outbox"`
	Consistency    ConsistencyConfig    `mapstructure:"consistency"`
}

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port" validate:"required,numeric"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	User            string        `mapstructure:"user" validate:"required"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname" validate:"required"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// LogLevel is the GORM logger level: silent, error, warn or info
	LogLevel string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

// JWTConfig verifies the bearer tokens that carry store scope. Tokens are
// issued elsewhere.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes" validate:"min=1"`
	MaxBodySize      int64         `mapstructure:"max_body_size" validate:"min=1"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	SwaggerEnabled   bool          `mapstructure:"swagger_enabled"`
	// AllowStoreHeader accepts X-Store-ID from callers without a bearer token
	AllowStoreHeader bool `mapstructure:"allow_store_header"`
}

type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	// ServiceName defaults to app.name
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// ReconciliationConfig tunes the engine, the applier's retries and the
// batch fan-out.
type ReconciliationConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1"`
	BaseBackoff  time.Duration `mapstructure:"base_backoff"`
	MaxBackoff   time.Duration `mapstructure:"max_backoff"`
	Concurrency  int           `mapstructure:"concurrency" validate:"min=1"`
	MaxBatchSize int           `mapstructure:"max_batch_size" validate:"min=1"`
	// LockNoWait takes stock rows with FOR UPDATE NOWAIT
	LockNoWait     bool          `mapstructure:"lock_no_wait"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type CountSessionConfig struct {
	Backend   string        `mapstructure:"backend" validate:"oneof=redis memory"`
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

type OutboxConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	BatchSize        int           `mapstructure:"batch_size" validate:"min=1"`
	MaxRetries       int           `mapstructure:"max_retries" validate:"min=1"`
	CleanupRetention time.Duration `mapstructure:"cleanup_retention"`
}

// ConsistencyConfig schedules the periodic ledger verification
type ConsistencyConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"min=1m"`
}

// defaults lists every key. A key must appear here for its RECON_* variable
// to be picked up.
var defaults = map[string]any{
	"app.name": "stockrecon",
	"app.env":  "development",
	"app.port": "8080",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "stockrecon",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,
	"database.log_level":          "warn",

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret": defaultJWTSecret,
	"jwt.issuer": "identity",

	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      30 * time.Second,
	"http.idle_timeout":       time.Minute,
	"http.request_timeout":    30 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      10 << 20,
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "X-Store-ID"},
	"http.swagger_enabled":    false,
	"http.allow_store_header": true,

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_interval":        15 * time.Second,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"reconciliation.max_attempts":    3,
	"reconciliation.base_backoff":    20 * time.Millisecond,
	"reconciliation.max_backoff":     500 * time.Millisecond,
	"reconciliation.concurrency":     4,
	"reconciliation.max_batch_size":  500,
	"reconciliation.lock_no_wait":    false,
	"reconciliation.idempotency_ttl": 24 * time.Hour,

	"count_session.backend":    CountSessionBackendRedis,
	"count_session.ttl":        24 * time.Hour,
	"count_session.key_prefix": "recon:count_session:",

	"outbox.enabled":           false,
	"outbox.poll_interval":     5 * time.Second,
	"outbox.batch_size":        100,
	"outbox.max_retries":       5,
	"outbox.cleanup_retention": 7 * 24 * time.Hour,

	"consistency.enabled":  false,
	"consistency.interval": time.Hour,
}

// Load reads config.toml from ., ./config or /app, then applies RECON_*
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "./config", "/app"} {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var structValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}()

func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return fieldError(fieldErrs[0])
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Reconciliation.MaxBackoff < c.Reconciliation.BaseBackoff {
		return fmt.Errorf("reconciliation.max_backoff (%s) cannot be less than reconciliation.base_backoff (%s)",
			c.Reconciliation.MaxBackoff, c.Reconciliation.BaseBackoff)
	}

	if c.IsProduction() {
		return c.validateProduction()
	}
	return nil
}

func (c *Config) validateProduction() error {
	switch {
	case c.JWT.Secret == defaultJWTSecret:
		return errors.New("jwt.secret must be set in production")
	case len(c.JWT.Secret) < minProdSecretSize:
		return fmt.Errorf("jwt.secret must be at least %d characters in production", minProdSecretSize)
	case c.Database.Password == "":
		return errors.New("database.password is required in production")
	case c.Telemetry.DBLogFullSQL:
		return errors.New("telemetry.db_log_full_sql must be false in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return errors.New("http.cors_allow_origins cannot contain '*' in production")
		}
	}
	return nil
}

// fieldError renders a validator failure under the config key, e.g.
// "reconciliation.concurrency must satisfy min=1 (got -2)".
func fieldError(fe validator.FieldError) error {
	key := fe.Namespace()
	if i := strings.IndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return fmt.Errorf("%s must satisfy %s (got %v)", key, rule, fe.Value())
}

func (c *Config) IsProduction() bool {
	return c.App.Env == envProduction
}

// DSN is a postgres:// URL with user and password escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// Addr is the Redis host:port
func (r *RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}
