package metrics

import (
	"context"
	"math"
	rtmetrics "runtime/metrics"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeSnapshotter(t *testing.T) {
	t.Parallel()

	snap, err := NewRuntimeSnapshotter().Snapshot(context.Background())
	require.NoError(t, err)

	assert.Positive(t, snap.Goroutines)
	assert.GreaterOrEqual(t, snap.GOMAXPROCS, int64(1))
	assert.Positive(t, snap.HeapBytes)
	assert.GreaterOrEqual(t, snap.SchedLatencyMean, 0.0)
	assert.False(t, snap.TakenAt.IsZero())
}

func TestHistogramMean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		h    *rtmetrics.Float64Histogram
		want float64
	}{
		{name: "nil", h: nil, want: 0},
		{
			name: "empty",
			h:    &rtmetrics.Float64Histogram{Counts: []uint64{0, 0}, Buckets: []float64{0, 1, 2}},
			want: 0,
		},
		{
			name: "midpoints weighted by count",
			h:    &rtmetrics.Float64Histogram{Counts: []uint64{1, 3}, Buckets: []float64{0, 2, 4}},
			// (1*1 + 3*3) / 4
			want: 2.5,
		},
		{
			name: "infinite edges clamp to neighbour",
			h: &rtmetrics.Float64Histogram{
				Counts:  []uint64{1, 0, 1},
				Buckets: []float64{math.Inf(-1), 1, 2, math.Inf(1)},
			},
			// (1*1 + 1*2) / 2
			want: 1.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, histogramMean(tt.h), 1e-9)
		})
	}
}
