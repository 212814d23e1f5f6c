//go:build integration

package testdb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phrazzld/foobar-daemon/internal/platform/postgres"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresImage is started when no database URL is provided.
const PostgresImage = "postgres:16-alpine"

// urlEnvVars are checked in order for an existing test database.
var urlEnvVars = []string{"FOOBAR_TEST_DB_URL", "DATABASE_URL"}

// GetTestDatabaseURL returns the first configured test database URL, or ""
// when none is set.
func GetTestDatabaseURL() string {
	for _, name := range urlEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// StartDatabase returns a database URL for the test run. It uses
// GetTestDatabaseURL when set and otherwise starts a disposable PostgreSQL
// container. The returned stop function is safe to call in both cases.
func StartDatabase(ctx context.Context) (string, func(), error) {
	if dsn := GetTestDatabaseURL(); dsn != "" {
		return dsn, func() {}, nil
	}

	container, err := tcpostgres.Run(ctx, PostgresImage,
		tcpostgres.WithDatabase("foobar"),
		tcpostgres.WithUsername("foobar"),
		tcpostgres.WithPassword("foobar"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return "", func() {}, fmt.Errorf("failed to start postgres container: %w", err)
	}

	stop := func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			slog.Warn("failed to terminate postgres container", "error", err)
		}
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		stop()
		return "", func() {}, fmt.Errorf("failed to read container connection string: %w", err)
	}

	return dsn, stop, nil
}

// SetupTestPool connects to dsn, applies migrations and closes the pool when
// the test finishes.
func SetupTestPool(t *testing.T, dsn string) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.DiscardHandler)

	pool, err := postgres.NewPool(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("Database connection failed: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return pool
}
