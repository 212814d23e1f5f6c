// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, and fans records out to the configured sinks: a daily
// rotated file set, a Loki collector reached over OTLP, or standard output.
package logger
