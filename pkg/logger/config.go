package logger

import (
	"log/slog"
	"strings"
)

// Config is the environment-driven logger setup. Empty fields keep the
// environment defaults chosen by WithEnvironment.
type Config struct {
	Level  string `env:"LOG_LEVEL"`  // debug, info, warn or error
	Format string `env:"LOG_FORMAT"` // json or text
}

// FromConfig applies the level and format overrides of cfg. It must come
// after WithEnvironment to take precedence.
func FromConfig(cfg Config) Option {
	return func(c *config) {
		if lvl, ok := ParseLevel(cfg.Level); ok {
			c.level = lvl
		}
		switch Format(strings.ToLower(cfg.Format)) {
		case FormatJSON:
			c.format = FormatJSON
		case FormatText:
			c.format = FormatText
		}
	}
}

// ParseLevel maps a level name to slog.Level. Unknown names report false.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
