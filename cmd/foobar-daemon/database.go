package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phrazzld/foobar-daemon/internal/config"
	"github.com/phrazzld/foobar-daemon/internal/platform/postgres"
	"github.com/phrazzld/foobar-daemon/internal/store"
)

// setupAppDatabase establishes the connection pool. Connection failures are
// fatal and not retried.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	return postgres.NewPool(ctx, cfg.DSN, logger)
}

// runMigrations creates the schema and applies pending migrations.
func runMigrations(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	return postgres.Migrate(ctx, pool, logger)
}

// logItemSummary reports the table contents the worker starts from.
// A failed read is only logged; the worker reports its own errors.
func logItemSummary(ctx context.Context, items store.ItemStore, logger *slog.Logger) {
	listed, err := items.List(ctx)
	if err != nil {
		logger.Warn("could not read items at startup", "error", err)
		return
	}

	attrs := []any{"items", len(listed)}
	if len(listed) > 0 {
		attrs = append(attrs,
			"oldest_id", listed[0].ID,
			"newest_time", listed[len(listed)-1].Time)
	}
	logger.Info("item table ready", attrs...)
}
