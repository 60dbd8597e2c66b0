package goSession

import (
	"errors"
	"strings"
)

// Config controls the storage layout and the ambient concerns of a [Manager].
//
// Config is copied by the Builder; mutating it after Build has no effect.
type Config struct {
	Storage StorageConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig names the three durable keys. They are written and deleted
// together.
type StorageConfig struct {
	AccessKey  string
	RefreshKey string
	UserKey    string
}

func (s StorageConfig) keys() []string {
	return []string{s.AccessKey, s.RefreshKey, s.UserKey}
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and the persist latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the layout used by the browser client this library
// mirrors: keys access_token, refresh_token and user.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			AccessKey:  "access_token",
			RefreshKey: "refresh_token",
			UserKey:    "user",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// Validate checks that the configuration can back a Manager.
func (c *Config) Validate() error {
	// Storage
	seen := make(map[string]struct{}, 3)
	for _, k := range c.Storage.keys() {
		if strings.TrimSpace(k) == "" {
			return errors.New("Storage keys must be non-empty")
		}
		if _, dup := seen[k]; dup {
			return errors.New("Storage keys must be distinct")
		}
		seen[k] = struct{}{}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
