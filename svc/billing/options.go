package billing

import (
	"log/slog"
	"time"
)

// Option configures the billing components.
type Option func(*settings)

type settings struct {
	cfg     Config
	log     *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

func newSettings(opts []Option) settings {
	s := settings{
		cfg: DefaultConfig(),
		log: slog.New(slog.DiscardHandler),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithConfig replaces the default configuration. Zero durations and attempt
// counts keep their defaults.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		def := DefaultConfig()
		if cfg.Processor == "" {
			cfg.Processor = def.Processor
		}
		if cfg.ProcessorTimeout <= 0 {
			cfg.ProcessorTimeout = def.ProcessorTimeout
		}
		if cfg.NotifyTimeout <= 0 {
			cfg.NotifyTimeout = def.NotifyTimeout
		}
		if cfg.StoreRetryAttempts == 0 {
			cfg.StoreRetryAttempts = def.StoreRetryAttempts
		}
		if cfg.StoreRetryInterval <= 0 {
			cfg.StoreRetryInterval = def.StoreRetryInterval
		}
		if cfg.EventLogTTL <= 0 {
			cfg.EventLogTTL = def.EventLogTTL
		}
		s.cfg = cfg
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
