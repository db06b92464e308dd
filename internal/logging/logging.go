package logging

import (
	"log/slog"
	"os"
)

// Init configures the process-wide slog default. Both binaries call this
// first thing in main; the level comes from LOG_LEVEL.
func Init() {
	level := slog.LevelInfo

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}

// Quiet drops the default logger to error-only. The chat TUI owns the
// terminal while it runs; anything below error would tear the screen.
func Quiet() {
	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}),
	)
	slog.SetDefault(logger)
}
