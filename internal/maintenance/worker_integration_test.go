//go:build integration

package maintenance_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/foobar-daemon/internal/maintenance"
	"github.com/phrazzld/foobar-daemon/internal/platform/postgres"
	"github.com/phrazzld/foobar-daemon/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDSN string

func TestMain(m *testing.M) {
	dsn, stop, err := testdb.StartDatabase(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration database unavailable: %v\n", err)
		os.Exit(1)
	}
	testDSN = dsn

	code := m.Run()
	stop()
	os.Exit(code)
}

func TestWorkerFillsEmptyTable(t *testing.T) {
	pool := testdb.SetupTestPool(t, testDSN)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	testdb.WithTx(t, pool, func(t *testing.T, tx pgx.Tx) {
		testdb.EmptyItems(t, tx)
		items := postgres.NewPostgresItemStore(tx, logger)

		w, err := maintenance.NewWorker(items, maintenance.Config{}, nil, logger)
		require.NoError(t, err)

		for i := 0; i < maintenance.LowWatermark; i++ {
			result := w.Cycle(ctx)
			require.NoError(t, result.Err, "cycle %d", i)
			assert.Equal(t, maintenance.ActionInsert, result.Action)
			assert.EqualValues(t, i, result.Count)
		}

		listed, err := items.List(ctx)
		require.NoError(t, err)
		require.Len(t, listed, maintenance.LowWatermark)
		for _, item := range listed {
			assert.NotEmpty(t, item.Text)
		}

		// At ten rows the next decision depends on the random draw
		result := w.Cycle(ctx)
		require.NoError(t, result.Err)
		assert.EqualValues(t, maintenance.LowWatermark, result.Count)
		assert.Contains(t, []maintenance.Action{maintenance.ActionInsert, maintenance.ActionEvict}, result.Action)
	})
}

func TestWorkerEvictsMinimumAtHighWatermark(t *testing.T) {
	pool := testdb.SetupTestPool(t, testDSN)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	testdb.WithTx(t, pool, func(t *testing.T, tx pgx.Tx) {
		testdb.EmptyItems(t, tx)
		items := postgres.NewPostgresItemStore(tx, logger)

		var firstID int32
		for i := 0; i < maintenance.HighWatermark; i++ {
			item, err := items.Insert(ctx, fmt.Sprintf("seed-%d", i))
			require.NoError(t, err)
			if i == 0 {
				firstID = item.ID
			}
		}

		w, err := maintenance.NewWorker(items, maintenance.Config{}, nil, logger)
		require.NoError(t, err)

		result := w.Cycle(ctx)
		require.NoError(t, result.Err)
		assert.Equal(t, maintenance.ActionEvict, result.Action)
		assert.Equal(t, firstID, result.ItemID)

		state, err := items.State(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, maintenance.HighWatermark-1, state.Count)
	})
}
