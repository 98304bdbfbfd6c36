// Package logger provides structured logging configuration using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Output formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "text", "json" or "pretty"

	// Output defaults to os.Stderr.
	Output io.Writer
}

// NewLogger creates a configured slog.Logger.
// The pretty format renders through a charmbracelet/log handler for terminals.
func NewLogger(cfg Config) *slog.Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
		// Add a source location for debug and error levels
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case FormatPretty:
		handler = log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			ReportCaller:    cfg.Level <= slog.LevelDebug,
			Level:           log.Level(cfg.Level),
		})
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level.
// Valid values: DEBUG, INFO, WARN, WARNING, ERROR (case-insensitive).
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// DefaultConfig returns the default logger configuration.
// TUNEHUB_LOG_LEVEL sets the level (default INFO) and TUNEHUB_LOG_FORMAT the format
// (default text).
func DefaultConfig() Config {
	cfg := Config{
		Level:  slog.LevelInfo,
		Format: FormatText,
	}
	if level, ok := ParseLevel(os.Getenv("TUNEHUB_LOG_LEVEL")); ok {
		cfg.Level = level
	}
	switch f := strings.ToLower(os.Getenv("TUNEHUB_LOG_FORMAT")); f {
	case FormatJSON, FormatPretty, FormatText:
		cfg.Format = f
	}
	return cfg
}
