package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Schema holds every object the daemon owns.
const Schema = "foobar"

// MigrationTableName is goose's version table, kept inside Schema.
const MigrationTableName = Schema + ".goose_db_version"

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// slogGooseLogger adapts the goose logger interface to use slog
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf implements the goose.Logger Printf method by forwarding messages to slog.Info
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf implements the goose.Logger Fatalf method by forwarding error messages to slog.Error.
// It does not exit; the error is returned to the caller.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Migrate creates the foobar schema when missing and applies all pending
// embedded migrations in order.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "migrations"))

	if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+Schema); err != nil {
		return &DatabaseError{Op: "create schema", Err: err}
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(&slogGooseLogger{logger: logger})
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return &DatabaseError{Op: "migrate", Err: fmt.Errorf("failed to set dialect: %w", err)}
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close migration connection", "error", err)
		}
	}()

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return &DatabaseError{Op: "migrate", Err: err}
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return &DatabaseError{Op: "migrate", Err: fmt.Errorf("failed to read schema version: %w", err)}
	}

	logger.Info("database migrations applied", "version", version)
	return nil
}
