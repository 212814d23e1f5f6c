package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/foobar-daemon/internal/task"
	"go.opentelemetry.io/otel/metric"
)

// SampleResult is the outcome of one sampling cycle.
type SampleResult struct {
	Snapshot SchedulerSnapshot
	Err      error
}

// SamplerConfig holds configuration for the Sampler
type SamplerConfig struct {
	// Interval between samples. If zero, task.DefaultInterval is used
	Interval time.Duration

	// Sleep overrides the loop sleeper, for tests
	Sleep task.Sleeper
}

// Sampler periodically records scheduler snapshots into gauges.
// A failed snapshot is logged and sampling continues.
type Sampler struct {
	source Snapshotter
	loop   *task.Loop[SampleResult]
	logger *slog.Logger

	goroutines   metric.Int64Gauge
	gomaxprocs   metric.Int64Gauge
	heapBytes    metric.Int64Gauge
	schedLatency metric.Float64Gauge
	gcCycles     metric.Int64Counter

	lastGCCycles uint64
}

// NewSampler creates a sampler reading from source and recording into meter.
func NewSampler(source Snapshotter, config SamplerConfig, meter metric.Meter, logger *slog.Logger) (*Sampler, error) {
	if source == nil {
		return nil, errors.New("snapshotter cannot be nil")
	}
	if meter == nil {
		return nil, errors.New("meter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sampler{
		source: source,
		logger: logger.With("component", "runtime_sampler"),
	}

	var err error
	if s.goroutines, err = meter.Int64Gauge("foobar_runtime_goroutines",
		metric.WithDescription("Live goroutines")); err != nil {
		return nil, fmt.Errorf("failed to create goroutine gauge: %w", err)
	}
	if s.gomaxprocs, err = meter.Int64Gauge("foobar_runtime_gomaxprocs",
		metric.WithDescription("Scheduler worker threads (GOMAXPROCS)")); err != nil {
		return nil, fmt.Errorf("failed to create gomaxprocs gauge: %w", err)
	}
	if s.heapBytes, err = meter.Int64Gauge("foobar_runtime_heap_objects",
		metric.WithDescription("Bytes occupied by live and unswept heap objects"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("failed to create heap gauge: %w", err)
	}
	if s.schedLatency, err = meter.Float64Gauge("foobar_runtime_sched_latency_mean",
		metric.WithDescription("Mean time goroutines wait runnable before running"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create scheduler latency gauge: %w", err)
	}
	if s.gcCycles, err = meter.Int64Counter("foobar_runtime_gc_cycles",
		metric.WithDescription("Completed GC cycles")); err != nil {
		return nil, fmt.Errorf("failed to create gc counter: %w", err)
	}

	s.loop, err = task.NewLoop(task.LoopConfig{
		Name:     "runtime_sampler",
		Interval: config.Interval,
		Sleep:    config.Sleep,
	}, s.Sample, s.record, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler loop: %w", err)
	}

	return s, nil
}

// Run samples until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	return s.loop.Run(ctx)
}

// Sample takes one snapshot.
func (s *Sampler) Sample(ctx context.Context) SampleResult {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return SampleResult{Err: fmt.Errorf("failed to take scheduler snapshot: %w", err)}
	}
	return SampleResult{Snapshot: snap}
}

func (s *Sampler) record(ctx context.Context, result SampleResult) {
	if result.Err != nil {
		s.logger.Error("error in runtime sampler", "error", result.Err)
		return
	}

	snap := result.Snapshot
	s.goroutines.Record(ctx, snap.Goroutines)
	s.gomaxprocs.Record(ctx, snap.GOMAXPROCS)
	s.heapBytes.Record(ctx, int64(snap.HeapBytes))
	s.schedLatency.Record(ctx, snap.SchedLatencyMean)

	// The runtime reports a lifetime total; the counter takes the increase.
	if snap.GCCycles > s.lastGCCycles {
		s.gcCycles.Add(ctx, int64(snap.GCCycles-s.lastGCCycles))
	}
	s.lastGCCycles = snap.GCCycles
}
