// Package logging builds the service's slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Config selects the handler and level
type Config struct {
	// Writer defaults to os.Stdout
	Writer io.Writer
	Level  string
	// Format is "json" or "text"; text output is colourised by tint
	Format    string
	AddSource bool
	NoColor   bool
}

// New creates a logger from cfg
func New(cfg Config) *slog.Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	level := ParseLevel(cfg.Level)

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(cfg.Writer, &slog.HandlerOptions{
			AddSource: cfg.AddSource,
			Level:     level,
		})
	} else {
		handler = tint.NewHandler(cfg.Writer, &tint.Options{
			AddSource:  cfg.AddSource,
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    cfg.NoColor,
		})
	}
	return slog.New(handler)
}

// ParseLevel maps a config string to a level; unknown strings mean info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
