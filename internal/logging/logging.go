// Package logging configures the process-wide slog logger: text to stdout,
// plus an optional JSON file with rotation when a log path is configured.
package logging

import (
	"context"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup installs the default logger. logFile may be empty (stdout only);
// the returned cleanup closes the rotating file, if any.
func Setup(level slog.Level, logFile string) (cleanup func(), err error) {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})

	if logFile == "" {
		slog.SetDefault(slog.New(consoleHandler))
		return func() {}, nil
	}

	// lumberjack handles log rotation
	lj := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		LocalTime:  true,
	}
	fileHandler := slog.NewJSONHandler(lj, &slog.HandlerOptions{Level: level})

	slog.SetDefault(slog.New(&fanoutHandler{handlers: []slog.Handler{consoleHandler, fileHandler}}))

	return func() {
		if err := lj.Close(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}, nil
}

// fanoutHandler sends each record to every handler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var lastErr error
	for _, h := range f.handlers {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: handlers}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: handlers}
}
