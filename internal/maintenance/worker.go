package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/foobar-daemon/internal/store"
	"github.com/phrazzld/foobar-daemon/internal/task"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// CycleResult is the outcome of one read-decide-write cycle.
type CycleResult struct {
	// Action is the mutation that was chosen, ActionNone if the read failed.
	Action Action
	// Count is the row count observed before the mutation.
	Count int64
	// Random is the store-side random value used for the decision.
	Random float64
	// ItemID is the inserted or evicted id. Zero if nothing changed.
	ItemID int32
	// Err is set when any step of the cycle failed.
	Err error
}

// Failed reports whether the cycle ended with an error.
func (r CycleResult) Failed() bool {
	return r.Err != nil
}

// Config holds configuration for the Worker
type Config struct {
	// Interval is the pause between cycles. If zero, task.DefaultInterval is used
	Interval time.Duration

	// Sleep overrides the loop sleeper, for tests
	Sleep task.Sleeper
}

// Worker maintains the items table. It owns every write to it.
type Worker struct {
	items  store.ItemStore
	loop   *task.Loop[CycleResult]
	logger *slog.Logger

	cycles metric.Int64Counter
	size   metric.Int64Gauge
}

// NewWorker creates a maintenance worker over the given store.
// A nil meter disables metrics; a nil logger uses slog.Default().
func NewWorker(items store.ItemStore, config Config, meter metric.Meter, logger *slog.Logger) (*Worker, error) {
	if items == nil {
		return nil, errors.New("item store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("maintenance")
	}

	w := &Worker{
		items:  items,
		logger: logger.With("component", "maintenance_worker"),
	}

	var err error
	w.cycles, err = meter.Int64Counter("foobar_worker_cycles",
		metric.WithDescription("Maintenance cycles by action and outcome"))
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle counter: %w", err)
	}
	w.size, err = meter.Int64Gauge("foobar_items",
		metric.WithDescription("Row count observed at the start of the last cycle"))
	if err != nil {
		return nil, fmt.Errorf("failed to create item gauge: %w", err)
	}

	w.loop, err = task.NewLoop(task.LoopConfig{
		Name:     "maintenance",
		Interval: config.Interval,
		Sleep:    config.Sleep,
	}, w.Cycle, w.report, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker loop: %w", err)
	}

	return w, nil
}

// Run executes cycles until ctx is cancelled. Cycle failures are logged
// and never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	return w.loop.Run(ctx)
}

// Cycle performs one read-decide-write attempt. It never mutates more than
// one row.
func (w *Worker) Cycle(ctx context.Context) CycleResult {
	state, err := w.items.State(ctx)
	if err != nil {
		return CycleResult{Err: fmt.Errorf("failed to read table state: %w", err)}
	}

	result := CycleResult{
		Action: Decide(state.Count, state.Random),
		Count:  state.Count,
		Random: state.Random,
	}

	switch result.Action {
	case ActionInsert:
		item, err := w.items.Insert(ctx, Digest(state.Random))
		if err != nil {
			result.Err = fmt.Errorf("failed to insert item: %w", err)
			return result
		}
		result.ItemID = item.ID

	case ActionEvict:
		id, evicted, err := w.items.EvictOldest(ctx)
		if err != nil {
			result.Err = fmt.Errorf("failed to evict oldest item: %w", err)
			return result
		}
		if !evicted {
			result.Err = fmt.Errorf("failed to evict oldest item: %w", store.ErrItemNotFound)
			return result
		}
		result.ItemID = id
	}

	return result
}

// report logs a cycle result and records it as metrics.
func (w *Worker) report(ctx context.Context, result CycleResult) {
	outcome := "success"
	if result.Failed() {
		outcome = "failure"
	}
	w.cycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", result.Action.String()),
		attribute.String("outcome", outcome),
	))

	if result.Failed() {
		w.logger.Error("error in maintenance cycle",
			"error", result.Err,
			"action", result.Action.String(),
			"count", result.Count)
		return
	}

	w.size.Record(ctx, result.Count)
	w.logger.Debug("maintenance cycle completed",
		"action", result.Action.String(),
		"item_id", result.ItemID,
		"count", result.Count,
		"random", result.Random)
}
