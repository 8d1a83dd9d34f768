package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/pale-notes/internal/config"
)

// Setup configures the global slog logger based on environment.
// Output goes to w; nil means stdout.
func Setup(cfg *config.Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.IsProduction() {
		// JSON format for production
		handler = slog.NewJSONHandler(w, opts)
	} else {
		// Text format for development
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// Output opens the destination for a terminal program. Log lines would
// corrupt the screen, so with no LOG_FILE everything is discarded.
func Output(cfg *config.Config) (io.Writer, func() error, error) {
	if cfg.LogFile == "" {
		return io.Discard, func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, f.Close, nil
}

// WithTurn adds the turn number to logger context
func WithTurn(logger *slog.Logger, turn int) *slog.Logger {
	return logger.With("turn", turn)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
