package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/foobar-daemon/internal/redact"
)

// LoggerConfig selects the log level and the sinks records are written to.
type LoggerConfig struct {
	// Level is one of debug, info, warn, error. Anything else falls back to info.
	Level string

	// Directory enables the daily rotated file sink. When empty, records go
	// to Stdout instead.
	Directory string

	// LokiURL enables shipping to a Loki collector over OTLP/HTTP.
	LokiURL string

	// Stdout overrides os.Stdout, mainly for tests.
	Stdout io.Writer
}

// ShutdownFunc flushes and closes the sinks opened by Setup.
type ShutdownFunc func(ctx context.Context) error

// ParseLevel maps a configured level name to a slog.Level. The boolean is
// false when the name is not recognized, in which case info is returned.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup initializes the application's logging system. It builds one JSON
// handler per enabled sink, fans records out to all of them and installs the
// result as the slog default.
//
// The returned ShutdownFunc must be called before exit so that batched Loki
// records are flushed and the log file is closed.
func Setup(ctx context.Context, cfg LoggerConfig) (*slog.Logger, ShutdownFunc, error) {
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		// Create a temporary logger to output the warning
		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.Level,
			"default_level", "info")
	}

	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: redact.ReplaceAttr}

	var (
		handlers  []slog.Handler
		shutdowns []ShutdownFunc
	)
	shutdownAll := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	if cfg.Directory != "" {
		file, err := newRotatingFile(cfg.Directory)
		if err != nil {
			return nil, nil, &ObservabilityError{Subsystem: "file sink", Err: err}
		}
		rotator := startDailyRotation(file)
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
		shutdowns = append(shutdowns, func(context.Context) error {
			rotator.Stop()
			return file.Close()
		})
	} else {
		stdout := cfg.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		handlers = append(handlers, slog.NewJSONHandler(stdout, opts))
	}

	if cfg.LokiURL != "" {
		handler, shutdown, err := newLokiHandler(ctx, cfg.LokiURL, level)
		if err != nil {
			_ = shutdownAll(ctx)
			return nil, nil, &ObservabilityError{Subsystem: "loki", Err: err}
		}
		handlers = append(handlers, handler)
		shutdowns = append(shutdowns, shutdown)
	}

	logger := slog.New(newFanoutHandler(handlers...))

	// Set this logger as the default for the application
	// This allows using the slog package functions directly (slog.Info, slog.Error, etc.)
	slog.SetDefault(logger)

	return logger, shutdownAll, nil
}
