package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// instantSleep records requested durations and returns immediately.
type instantSleep struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (s *instantSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	return ctx.Err()
}

func TestNewLoop(t *testing.T) {
	t.Parallel()

	t.Run("nil cycle is rejected", func(t *testing.T) {
		t.Parallel()

		loop, err := NewLoop[error](LoopConfig{Name: "test"}, nil, nil, discardLogger())
		assert.Error(t, err)
		assert.Nil(t, loop)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		t.Parallel()

		loop, err := NewLoop(LoopConfig{Name: "test"},
			func(ctx context.Context) error { return nil }, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultInterval, loop.Interval())
		assert.NotNil(t, loop.sleep)
		assert.NotNil(t, loop.handle)
		assert.NotNil(t, loop.logger)
	})

	t.Run("custom interval is kept", func(t *testing.T) {
		t.Parallel()

		loop, err := NewLoop(LoopConfig{Name: "test", Interval: time.Second},
			func(ctx context.Context) error { return nil }, nil, discardLogger())
		require.NoError(t, err)
		assert.Equal(t, time.Second, loop.Interval())
	})
}

func TestLoop_ContinuesAfterFailures(t *testing.T) {
	t.Parallel()

	const failures = 5
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeper := &instantSleep{}
	cycles := 0
	var handled []error

	loop, err := NewLoop(
		LoopConfig{Name: "failing", Interval: 5 * time.Second, Sleep: sleeper.Sleep},
		func(ctx context.Context) error {
			cycles++
			if cycles <= failures {
				return errors.New("intentional test failure")
			}
			return nil
		},
		func(ctx context.Context, err error) {
			handled = append(handled, err)
			if len(handled) == failures+1 {
				cancel()
			}
		},
		discardLogger(),
	)
	require.NoError(t, err)

	err = loop.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, failures+1, cycles, "cycle after the failures should still run")
	require.Len(t, handled, failures+1)
	for i := 0; i < failures; i++ {
		assert.Error(t, handled[i])
	}
	assert.NoError(t, handled[failures])
}

func TestLoop_SleepsAfterEveryCycle(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeper := &instantSleep{}
	cycles := 0

	loop, err := NewLoop(
		LoopConfig{Name: "sleepy", Interval: 5 * time.Second, Sleep: sleeper.Sleep},
		func(ctx context.Context) int {
			cycles++
			if cycles == 3 {
				cancel()
			}
			return cycles
		},
		nil,
		discardLogger(),
	)
	require.NoError(t, err)

	assert.ErrorIs(t, loop.Run(ctx), context.Canceled)
	assert.Equal(t, 3, cycles)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, sleeper.durations)
}

func TestLoop_StopsWhenContextAlreadyDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	loop, err := NewLoop(LoopConfig{Name: "cancelled"},
		func(ctx context.Context) error {
			called = true
			return nil
		}, nil, discardLogger())
	require.NoError(t, err)

	assert.ErrorIs(t, loop.Run(ctx), context.Canceled)
	assert.False(t, called, "no cycle should run after cancellation")
}

func TestSleep(t *testing.T) {
	t.Parallel()

	t.Run("returns after the duration", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		err := Sleep(context.Background(), 20*time.Millisecond)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("returns early on cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := Sleep(ctx, time.Minute)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})
}
