package logger

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

// ServiceName labels every record shipped to Loki.
const ServiceName = "foobar-daemon"

// lokiOTLPPath is Loki's native OTLP logs ingestion endpoint.
const lokiOTLPPath = "/otlp/v1/logs"

// lokiEndpoint derives the OTLP ingestion URL from a Loki base URL.
func lokiEndpoint(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid loki url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid loki url %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid loki url %q: missing host", rawURL)
	}

	u.Path = strings.TrimRight(u.Path, "/") + lokiOTLPPath
	return u.String(), nil
}

// newLokiHandler builds a slog handler that batches records to Loki over
// OTLP/HTTP. The returned shutdown flushes pending records.
func newLokiHandler(ctx context.Context, rawURL string, level slog.Leveler) (slog.Handler, func(context.Context) error, error) {
	endpoint, err := lokiEndpoint(rawURL)
	if err != nil {
		return nil, nil, err
	}

	exporter, err := otlploghttp.New(ctx, otlploghttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create otlp log exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", ServiceName)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build log resource: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	global.SetLoggerProvider(provider)

	handler := otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))
	return &levelHandler{handler: &redactingHandler{handler: handler}, level: level}, provider.Shutdown, nil
}
