//go:build integration

package testdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx runs the provided function within a database transaction.
// The transaction is always rolled back after the function completes,
// so tests can mutate foobar.items freely and in parallel.
func WithTx(t *testing.T, pool *pgxpool.Pool, fn func(t *testing.T, tx pgx.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	defer func() {
		// pgx.ErrTxClosed is expected if fn already ended the transaction
		if err := tx.Rollback(context.Background()); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// EmptyItems deletes every item visible to tx. Combined with WithTx the
// deletion is discarded at the end of the test.
func EmptyItems(t *testing.T, tx pgx.Tx) {
	t.Helper()

	if _, err := tx.Exec(context.Background(), "DELETE FROM foobar.items"); err != nil {
		t.Fatalf("Failed to empty foobar.items: %v", err)
	}
}
