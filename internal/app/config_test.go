package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.EmbeddedAuthority())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SESSIOND_STORE", "sqlite")
	t.Setenv("SESSIOND_STORE_PATH", "/tmp/x.db")
	t.Setenv("SESSIOND_AUTH_URL", "https://accounts.example.com/api")
	t.Setenv("SESSIOND_CORS_ORIGINS", "http://localhost:3000,tauri://localhost")
	t.Setenv("SESSIOND_REDIS_PREFIX", "desk")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "/tmp/x.db", cfg.StorePath)
	assert.False(t, cfg.EmbeddedAuthority())
	assert.Equal(t, []string{"http://localhost:3000", "tauri://localhost"}, cfg.CORSOrigins)
	assert.Equal(t, "desk", cfg.RedisPrefix)
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{Store: StoreMemory, LogFormat: "text", LoginRateLimit: 1}
	}
	require.NoError(t, (&Config{Store: StoreMemory, LogFormat: "json", LoginRateLimit: 5}).Validate())

	cases := map[string]func(*Config){
		"unknown store":   func(c *Config) { c.Store = "mongo" },
		"file needs path": func(c *Config) { c.Store = StoreFile },
		"bad log format":  func(c *Config) { c.LogFormat = "xml" },
		"zero rate limit": func(c *Config) { c.LoginRateLimit = 0 },
		"short secret":    func(c *Config) { c.AuthSecret = "short" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigRejectsInvalidEnv(t *testing.T) {
	t.Setenv("SESSIOND_STORE", "mongo")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("SESSIOND_STORE", "memory")
	t.Setenv("SESSIOND_LOGIN_RATE_LIMIT", "lots")
	_, err = LoadConfig()
	assert.Error(t, err)
}
