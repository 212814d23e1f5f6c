package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/foobar-daemon/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// ServiceName is attached to every exported series as a resource attribute.
const ServiceName = "foobar-daemon"

// shutdownTimeout bounds the graceful stop of the HTTP listener.
const shutdownTimeout = 10 * time.Second

// Exporter owns the meter provider and the Prometheus HTTP listener.
// The zero-configuration Exporter returned for an empty address hands out
// no-op meters and never listens.
type Exporter struct {
	provider *sdkmetric.MeterProvider
	noop     metric.MeterProvider
	listener net.Listener
	server   *http.Server
	logger   *slog.Logger
}

// NewExporter sets up metrics for addr. The listener is bound here so that
// an unusable address fails startup. An empty addr disables metrics.
func NewExporter(addr string, log *slog.Logger) (*Exporter, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "metrics"))

	if addr == "" {
		log.Debug("metrics disabled, no prometheus_export configured")
		return &Exporter{noop: noop.NewMeterProvider(), logger: log}, nil
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, &logger.ObservabilityError{Subsystem: "process collector", Err: err}
	}

	promExporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, &logger.ObservabilityError{Subsystem: "prometheus exporter", Err: err}
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", ServiceName)),
	)
	if err != nil {
		return nil, &logger.ObservabilityError{Subsystem: "metrics resource", Err: err}
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
		sdkmetric.WithResource(res),
	)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, &logger.ObservabilityError{Subsystem: "metrics listener", Err: err}
	}

	otel.SetMeterProvider(provider)

	e := &Exporter{
		provider: provider,
		listener: listener,
		logger:   log,
	}
	e.server = &http.Server{
		Handler:           e.router(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return e, nil
}

func (e *Exporter) router(registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		Registry: registry,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return r
}

// Enabled reports whether a listener was configured.
func (e *Exporter) Enabled() bool {
	return e.provider != nil
}

// Addr returns the bound listen address, or "" when disabled.
func (e *Exporter) Addr() string {
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}

// Meter returns a named meter from the exporter's provider.
func (e *Exporter) Meter(name string) metric.Meter {
	if e.provider == nil {
		return e.noop.Meter(name)
	}
	return e.provider.Meter(name)
}

// Serve answers scrapes until ctx is cancelled, then shuts the listener down
// gracefully. It returns immediately when metrics are disabled.
func (e *Exporter) Serve(ctx context.Context) error {
	if e.server == nil {
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		e.logger.Info("starting metrics server", "addr", e.Addr())
		if err := e.server.Serve(e.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		e.logger.Info("shutting down metrics server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}
	return nil
}

// Shutdown releases the meter provider. When Serve was never called the
// listener is closed as well.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e.provider == nil {
		return nil
	}

	var errs []error
	if err := e.provider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down meter provider: %w", err))
	}
	if err := e.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close metrics listener: %w", err))
	}
	return errors.Join(errs...)
}
