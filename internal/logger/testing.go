package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger creates a quiet logger for tests (WARN and above).
// Set TEST_DEBUG to get debug output, and TEST_LOG_FORMAT to pick the format.
func NewTestLogger() *slog.Logger {
	cfg := Config{
		Level:  slog.LevelWarn,
		Format: FormatText,
		Output: os.Stdout,
	}
	if os.Getenv("TEST_DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if f := os.Getenv("TEST_LOG_FORMAT"); f != "" {
		cfg.Format = f
	}
	return NewLogger(cfg)
}
