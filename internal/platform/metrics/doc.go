// Package metrics exposes the daemon's OpenTelemetry instruments on a
// Prometheus pull endpoint and periodically samples Go runtime scheduler
// statistics into them. Everything here is a no-op when no listen address
// is configured.
package metrics
