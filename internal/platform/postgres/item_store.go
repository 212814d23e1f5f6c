package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/foobar-daemon/internal/store"
)

const (
	stateQuery  = `SELECT count(*), random() FROM foobar.items`
	insertQuery = `INSERT INTO foobar.items (text) VALUES ($1) RETURNING id, text, time`
	// Deleting by the current minimum keeps the eviction a single statement.
	evictQuery = `DELETE FROM foobar.items WHERE id = (SELECT min(id) FROM foobar.items) RETURNING id`
	listQuery  = `SELECT id, text, time FROM foobar.items ORDER BY time, id`
)

// PostgresItemStore implements the store.ItemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresItemStore creates a new PostgreSQL implementation of the ItemStore interface.
// It accepts a pool, connection or transaction that is managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresItemStore(db store.DBTX, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

// Ensure PostgresItemStore implements store.ItemStore interface
var _ store.ItemStore = (*PostgresItemStore)(nil)

// State implements store.ItemStore.State.
// The count and the random value come from one statement.
func (s *PostgresItemStore) State(ctx context.Context) (store.TableState, error) {
	var state store.TableState
	if err := s.db.QueryRow(ctx, stateQuery).Scan(&state.Count, &state.Random); err != nil {
		return store.TableState{}, store.NewStoreError("item", "state", "failed to read table state", MapError(err))
	}
	return state, nil
}

// Insert implements store.ItemStore.Insert.
func (s *PostgresItemStore) Insert(ctx context.Context, text string) (store.Item, error) {
	var item store.Item
	if err := s.db.QueryRow(ctx, insertQuery, text).Scan(&item.ID, &item.Text, &item.Time); err != nil {
		return store.Item{}, store.NewStoreError("item", "insert", "failed to insert item", MapError(err))
	}

	s.logger.Debug("item inserted", slog.Int("item_id", int(item.ID)))
	return item, nil
}

// EvictOldest implements store.ItemStore.EvictOldest.
// An empty table is not an error: evicted is false.
func (s *PostgresItemStore) EvictOldest(ctx context.Context) (int32, bool, error) {
	var id int32
	err := s.db.QueryRow(ctx, evictQuery).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, store.NewStoreError("item", "evict", "failed to evict oldest item", MapError(err))
	}

	s.logger.Debug("item evicted", slog.Int("item_id", int(id)))
	return id, true, nil
}

// List implements store.ItemStore.List.
func (s *PostgresItemStore) List(ctx context.Context) ([]store.Item, error) {
	rows, err := s.db.Query(ctx, listQuery)
	if err != nil {
		return nil, store.NewStoreError("item", "list", "failed to query items", MapError(err))
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Item, error) {
		var item store.Item
		err := row.Scan(&item.ID, &item.Text, &item.Time)
		return item, err
	})
	if err != nil {
		return nil, store.NewStoreError("item", "list", "failed to scan items", MapError(err))
	}

	return items, nil
}
