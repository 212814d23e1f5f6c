package store

import (
	"context"
	"time"
)

// Item is a single row of the maintained table.
type Item struct {
	// ID is assigned by the store and orders items for eviction.
	ID int32
	// Text is an opaque digest payload.
	Text string
	// Time is the creation timestamp. Only the read path uses it.
	Time time.Time
}

// TableState is a single atomic observation of the items table: the row
// count together with one uniform random value in [0,1) drawn by the store.
type TableState struct {
	Count  int64
	Random float64
}

// ItemStore defines the persistence operations used by the maintenance worker.
// Implementations must perform each method as a single statement so that one
// call never produces more than one mutation.
type ItemStore interface {
	// State returns the current row count and a random value from the
	// store's own random source, read together.
	State(ctx context.Context) (TableState, error)

	// Insert adds one row with the given text. ID and Time are assigned
	// by the store and returned.
	Insert(ctx context.Context, text string) (Item, error)

	// EvictOldest deletes the row holding the minimum id at the time the
	// statement executes. It reports the removed id, or evicted=false when
	// the table was empty.
	EvictOldest(ctx context.Context) (id int32, evicted bool, err error)

	// List returns all items ordered by creation time.
	List(ctx context.Context) ([]Item, error)
}
