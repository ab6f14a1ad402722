package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's own logger without touching slog's default.
// Unknown levels fall back to info; any format other than "text" is JSON.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "text" {
		handler = slog.NewTextHandler(outW, opts)
	} else {
		handler = slog.NewJSONHandler(outW, opts)
	}
	return slog.New(handler).With("app", "jobchain")
}
