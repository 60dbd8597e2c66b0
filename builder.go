package goSession

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/MrEthical07/goSession/storage"
	"github.com/go-playground/validator/v10"
)

// Builder assembles a [Manager]. A Builder is single use.
type Builder struct {
	config    Config
	store     storage.Store
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the durable backend. It is required.
func (b *Builder) WithStore(store storage.Store) *Builder {
	b.store = store
	return b
}

// WithLogger sets the structured logger. Nil discards all records.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the destination of audit events. It only matters when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the persist latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a Manager in the
// initializing state. Call [Manager.Initialize] before mutating it.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.store == nil {
		return nil, ErrStoreRequired
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := &Manager{
		config:   cfg,
		store:    b.store,
		logger:   logger.With("component", "gosession"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  NewMetrics(cfg.Metrics),
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		status:   StatusInitializing,
	}

	b.built = true

	return m, nil
}
