// Package logger builds the structured loggers shared by the progresso binaries.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger on stdout tagged with the binary name and the
// deployment environment. Debug level also records source locations.
func New(service, env string, level slog.Level) *slog.Logger {
	return newLogger(os.Stdout, service, env, level)
}

func newLogger(w io.Writer, service, env string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}
	attrs := []any{"service", service}
	if env != "" {
		attrs = append(attrs, "env", env)
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With(attrs...)
}
