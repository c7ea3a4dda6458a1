// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/tjfontaine/autoclean-api/internal/config"
)

// ParseLevel maps a configured level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing to w. Format "text" produces colorized
// console output; anything else produces JSON lines.
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Level)

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  cfg.AddSource,
			TimeFormat: time.Kitchen,
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: cfg.AddSource,
		})
	}

	return slog.New(handler)
}
