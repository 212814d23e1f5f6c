package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phrazzld/foobar-daemon/internal/redact"
)

// ApplicationName tags every session opened by the daemon.
const ApplicationName = "foobar-daemon"

// setApplicationName runs on every new physical connection.
const setApplicationName = "SET application_name = '" + ApplicationName + "'"

// NewPool builds a connection pool for dsn and verifies it with one ping.
// Failures are returned as *DatabaseError and are not retried.
func NewPool(ctx context.Context, dsn string, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, &DatabaseError{Op: "connect", Err: fmt.Errorf("invalid dsn: %w", err)}
	}

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, setApplicationName); err != nil {
			return fmt.Errorf("failed to set application_name: %w", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &DatabaseError{Op: "connect", Err: err}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &DatabaseError{Op: "connect", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	logger.Info("database connection established",
		"database_url", redact.String(dsn),
		"max_conns", poolConfig.MaxConns)

	return pool, nil
}
