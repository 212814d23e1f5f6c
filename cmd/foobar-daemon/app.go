package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phrazzld/foobar-daemon/internal/config"
	"github.com/phrazzld/foobar-daemon/internal/maintenance"
	"github.com/phrazzld/foobar-daemon/internal/platform/logger"
	"github.com/phrazzld/foobar-daemon/internal/platform/metrics"
	"github.com/phrazzld/foobar-daemon/internal/platform/postgres"
	"golang.org/x/sync/errgroup"
)

// cleanupTimeout bounds flushing of log sinks and the meter provider.
const cleanupTimeout = 10 * time.Second

type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger      *slog.Logger
	logShutdown logger.ShutdownFunc
	metrics     *metrics.Exporter
	pool        *pgxpool.Pool

	// Background loops
	worker  *maintenance.Worker
	sampler *metrics.Sampler
}

// newApplication brings the daemon up in order: logging, metrics, database
// pool, schema. The first failing step aborts startup and everything opened
// so far is released.
func newApplication(ctx context.Context, cfg *config.Config, stdout io.Writer) (_ *application, err error) {
	app := &application{config: cfg}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	if err := app.setupLogging(ctx, stdout); err != nil {
		return nil, fmt.Errorf("failed to init logging: %w", err)
	}

	if err := app.setupMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	if app.pool, err = setupAppDatabase(ctx, cfg, app.logger); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := runMigrations(ctx, app.pool, app.logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	items := postgres.NewPostgresItemStore(app.pool, app.logger)
	logItemSummary(ctx, items, app.logger)

	app.worker, err = maintenance.NewWorker(items, maintenance.Config{}, app.metrics.Meter("maintenance"), app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create maintenance worker: %w", err)
	}

	if app.metrics.Enabled() {
		app.sampler, err = metrics.NewSampler(metrics.NewRuntimeSnapshotter(), metrics.SamplerConfig{},
			app.metrics.Meter("runtime"), app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to init metrics: %w", err)
		}
	}

	app.logger.Info("application initialized successfully")
	return app, nil
}

func (app *application) setupLogging(ctx context.Context, stdout io.Writer) error {
	log, shutdown, err := logger.Setup(ctx, logger.LoggerConfig{
		Level:     app.config.LogLevel,
		Directory: app.config.LogDirectory,
		LokiURL:   app.config.LokiURL,
		Stdout:    stdout,
	})
	if err != nil {
		return err
	}

	app.logger = log.With("instance_id", uuid.NewString())
	app.logShutdown = shutdown

	app.logger.Info("foobar-daemon starting",
		"version", version,
		"log_level", app.config.LogLevel,
		"log_directory", app.config.LogDirectory,
		"loki_enabled", app.config.LokiURL != "",
		"metrics_enabled", app.config.PrometheusExport != "")
	return nil
}

func (app *application) setupMetrics() error {
	exporter, err := metrics.NewExporter(app.config.PrometheusExport, app.logger)
	if err != nil {
		return err
	}
	app.metrics = exporter
	return nil
}

// Run starts the worker, the sampler and the metrics listener and blocks
// until the worker stops. The worker only stops on cancellation of ctx, so a
// signal-triggered shutdown returns nil.
func (app *application) Run(ctx context.Context) error {
	runCtx, stopAll := context.WithCancel(ctx)
	defer stopAll()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		// The daemon lives exactly as long as its worker.
		defer stopAll()
		return ignoreCanceled(app.worker.Run(gctx))
	})

	if app.sampler != nil {
		g.Go(func() error {
			return ignoreCanceled(app.sampler.Run(gctx))
		})
	}

	if app.metrics != nil && app.metrics.Enabled() {
		g.Go(func() error {
			return app.metrics.Serve(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("daemon stopped: %w", err)
	}

	app.logger.Info("shutdown signal received, daemon stopped")
	return nil
}

// cleanup handles graceful shutdown of application resources.
// Log sinks are flushed last so that earlier steps can still log.
func (app *application) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if app.metrics != nil {
		if err := app.metrics.Shutdown(ctx); err != nil {
			app.logger.Error("error shutting down metrics", "error", err)
		}
	}

	if app.pool != nil {
		app.pool.Close()
	}

	if app.logger != nil {
		app.logger.Info("application shutdown completed")
	}

	if app.logShutdown != nil {
		if err := app.logShutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
