package metrics

import (
	"context"
	"fmt"
	"math"
	rtmetrics "runtime/metrics"
	"time"
)

// SchedulerSnapshot is one reading of the Go runtime scheduler and heap.
type SchedulerSnapshot struct {
	TakenAt    time.Time
	Goroutines int64
	GOMAXPROCS int64
	GCCycles   uint64
	HeapBytes  uint64
	// SchedLatencyMean is the mean time goroutines spent runnable before
	// running, in seconds, over the process lifetime.
	SchedLatencyMean float64
}

// Snapshotter takes scheduler snapshots. Production code uses
// RuntimeSnapshotter; tests inject fakes.
type Snapshotter interface {
	Snapshot(ctx context.Context) (SchedulerSnapshot, error)
}

// runtime/metrics keys read by RuntimeSnapshotter.
const (
	goroutinesMetric   = "/sched/goroutines:goroutines"
	gomaxprocsMetric   = "/sched/gomaxprocs:threads"
	gcCyclesMetric     = "/gc/cycles/total:gc-cycles"
	heapObjectsMetric  = "/memory/classes/heap/objects:bytes"
	schedLatencyMetric = "/sched/latencies:seconds"
)

// RuntimeSnapshotter reads scheduler statistics from runtime/metrics.
type RuntimeSnapshotter struct {
	now func() time.Time
}

// NewRuntimeSnapshotter returns a Snapshotter over the current process.
func NewRuntimeSnapshotter() *RuntimeSnapshotter {
	return &RuntimeSnapshotter{now: time.Now}
}

// Snapshot implements Snapshotter.
func (s *RuntimeSnapshotter) Snapshot(context.Context) (SchedulerSnapshot, error) {
	samples := []rtmetrics.Sample{
		{Name: goroutinesMetric},
		{Name: gomaxprocsMetric},
		{Name: gcCyclesMetric},
		{Name: heapObjectsMetric},
		{Name: schedLatencyMetric},
	}
	rtmetrics.Read(samples)

	for _, sample := range samples {
		if sample.Value.Kind() == rtmetrics.KindBad {
			return SchedulerSnapshot{}, fmt.Errorf("runtime metric %s is not supported", sample.Name)
		}
	}

	return SchedulerSnapshot{
		TakenAt:          s.now(),
		Goroutines:       int64(samples[0].Value.Uint64()),
		GOMAXPROCS:       int64(samples[1].Value.Uint64()),
		GCCycles:         samples[2].Value.Uint64(),
		HeapBytes:        samples[3].Value.Uint64(),
		SchedLatencyMean: histogramMean(samples[4].Value.Float64Histogram()),
	}, nil
}

// histogramMean estimates the mean of a runtime histogram from bucket
// midpoints. Infinite bucket edges are clamped to the finite neighbour.
func histogramMean(h *rtmetrics.Float64Histogram) float64 {
	if h == nil {
		return 0
	}

	var total uint64
	var sum float64
	for i, count := range h.Counts {
		if count == 0 {
			continue
		}
		lo, hi := h.Buckets[i], h.Buckets[i+1]
		if math.IsInf(lo, -1) {
			lo = hi
		}
		if math.IsInf(hi, 1) {
			hi = lo
		}
		sum += float64(count) * (lo + hi) / 2
		total += count
	}

	if total == 0 {
		return 0
	}
	return sum / float64(total)
}
