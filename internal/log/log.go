// Package log constructs the application's slog loggers.
//
// Loggers are injected via constructors, never reached for through
// globals; components add their own context via logger.With(). The app
// logs to stderr because stdout belongs to the TUI.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Config defines logger construction options.
type Config struct {
	// Level is the minimum level emitted. Zero value is slog.LevelInfo.
	Level slog.Level

	// JSON switches the handler from text to JSON output.
	JSON bool

	// AddSource annotates entries with file and line.
	AddSource bool
}

// New creates a logger writing to os.Stderr.
func New(cfg Config) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w. Tests use this with a
// bytes.Buffer to inspect output.
func NewWithWriter(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger that discards everything. Test-only; a
// production component that logs nowhere is a debugging dead end.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
