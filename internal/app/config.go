package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every variable, e.g. SESSIOND_ADDR.
const EnvPrefix = "SESSIOND"

// Store backends accepted by SESSIOND_STORE.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds runtime configuration for the shell.
type Config struct {
	Env             string        `envconfig:"ENV" default:"development"`
	Addr            string        `envconfig:"ADDR" default:"127.0.0.1:8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	Store     string `envconfig:"STORE" default:"file"`
	StorePath string `envconfig:"STORE_PATH" default:"./data/session.json"`

	RedisAddr   string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPrefix string `envconfig:"REDIS_PREFIX" default:"gosession"`

	// AuthURL points at an external accounts API. When empty the demo
	// authority is mounted under /api.
	AuthURL     string   `envconfig:"AUTH_URL"`
	AuthSecret  string   `envconfig:"AUTH_SECRET"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`

	LoginRateLimit int  `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	AuditLog       bool `envconfig:"AUDIT_LOG" default:"false"`
}

// LoadConfig reads .env if present, then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the combinations envconfig cannot express.
func (c *Config) Validate() error {
	if !slices.Contains([]string{StoreMemory, StoreFile, StoreSQLite, StoreRedis}, c.Store) {
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if (c.Store == StoreFile || c.Store == StoreSQLite) && c.StorePath == "" {
		return errors.New("store path must be provided")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.LoginRateLimit <= 0 {
		return errors.New("login rate limit must be > 0")
	}
	if c.AuthSecret != "" && len(c.AuthSecret) < 32 {
		return errors.New("auth secret must be at least 32 bytes")
	}
	return nil
}

// IsProduction returns true when the shell runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// EmbeddedAuthority reports whether the demo accounts API is mounted.
func (c *Config) EmbeddedAuthority() bool {
	return c.AuthURL == ""
}
