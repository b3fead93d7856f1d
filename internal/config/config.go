package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Lifecycle    LifecycleConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables push.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Format  string
	Service string
	Env     string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// NotificationConfig controls the notification dispatcher.
type NotificationConfig struct {
	ChannelPrefix string
	Enabled       bool
}

// LifecycleConfig tunes the ticket state machine.
type LifecycleConfig struct {
	ReopenPolicy          string
	RejectMode            string
	MaxTransitionAttempts int
	MaxCodeAttempts       int
}

// Load reads configuration from the environment, after merging a .env file
// when one exists. Malformed numbers and booleans are reported rather than
// replaced by defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	e := &envReader{}
	cfg := &Config{
		App: AppConfig{
			Name:                  e.getString("APP_NAME", "maintenance-service"),
			Env:                   e.getString("APP_ENV", "development"),
			Host:                  e.getString("APP_HOST", "0.0.0.0"),
			Port:                  e.getString("APP_PORT", "8080"),
			Version:               e.getString("APP_VERSION", "dev"),
			RequestTimeoutSeconds: e.getInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(e.getInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(e.getInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  e.getBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(e.getInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(e.getInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     e.getString("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       e.getInt("REDIS_DB", 0),
		},
		Logger: LoggerConfig{
			Level:  e.getString("LOG_LEVEL", "info"),
			Format: e.getString("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             e.getString("AUTH_JWT_SECRET", devJWTSecret),
			AccessTokenTTLMinutes: e.getInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            e.getInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			ChannelPrefix: e.getString("NOTIFY_CHANNEL_PREFIX", "notifications"),
			Enabled:       e.getBool("NOTIFY_ENABLED", true),
		},
		Lifecycle: LifecycleConfig{
			ReopenPolicy:          e.getString("LIFECYCLE_REOPEN_POLICY", "raiser_or_admin"),
			RejectMode:            e.getString("LIFECYCLE_REJECT_MODE", "rework"),
			MaxTransitionAttempts: e.getInt("LIFECYCLE_MAX_TRANSITION_ATTEMPTS", 3),
			MaxCodeAttempts:       e.getInt("LIFECYCLE_MAX_CODE_ATTEMPTS", 10),
		},
	}
	cfg.Logger.Service = cfg.App.Name
	cfg.Logger.Env = cfg.App.Env

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Lifecycle.validate(); err != nil {
		errs = append(errs, err)
	}
	if c.App.Env == "production" && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == devJWTSecret) {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	if c.Auth.AccessTokenTTLMinutes < 1 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	return errors.Join(errs...)
}

func (l LifecycleConfig) validate() error {
	switch l.ReopenPolicy {
	case "raiser_or_admin", "any":
	default:
		return fmt.Errorf("invalid LIFECYCLE_REOPEN_POLICY %q", l.ReopenPolicy)
	}
	switch l.RejectMode {
	case "rework", "terminal":
	default:
		return fmt.Errorf("invalid LIFECYCLE_REJECT_MODE %q", l.RejectMode)
	}
	if l.MaxTransitionAttempts < 1 || l.MaxCodeAttempts < 1 {
		return errors.New("lifecycle attempt limits must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// envReader reads typed variables and remembers every malformed one.
type envReader struct {
	errs []error
}

func (e *envReader) getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func (e *envReader) getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: not an integer", key, val))
		return fallback
	}
	return parsed
}

func (e *envReader) getBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s %q: not a boolean", key, val))
		return fallback
	}
	return parsed
}
