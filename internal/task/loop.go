package task

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultInterval is the pause between two cycles of a Loop.
const DefaultInterval = 5 * time.Second

// Sleeper pauses for d or until ctx is done, whichever happens first.
// It returns ctx.Err() when interrupted.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the production Sleeper backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LoopConfig holds configuration for a Loop
type LoopConfig struct {
	// Name identifies the loop in logs
	Name string

	// Interval is slept after every cycle, successful or not.
	// If zero, defaults to DefaultInterval
	Interval time.Duration

	// Sleep overrides the sleeper, mainly for tests.
	// If nil, Sleep is used
	Sleep Sleeper
}

// Loop runs a cycle function forever: one cycle, hand the result to the
// handler, sleep, repeat. Cycles never overlap. The loop itself never stops
// because of a cycle's result; only cancellation of the context ends it.
type Loop[R any] struct {
	name     string
	interval time.Duration
	sleep    Sleeper
	cycle    func(ctx context.Context) R
	handle   func(ctx context.Context, result R)
	logger   *slog.Logger
}

// NewLoop creates a Loop for the given cycle and result handler.
func NewLoop[R any](
	config LoopConfig,
	cycle func(ctx context.Context) R,
	handle func(ctx context.Context, result R),
	logger *slog.Logger,
) (*Loop[R], error) {
	if cycle == nil {
		return nil, errors.New("cycle function cannot be nil")
	}
	if handle == nil {
		handle = func(context.Context, R) {}
	}
	if logger == nil {
		logger = slog.Default()
	}

	interval := config.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	sleep := config.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	return &Loop[R]{
		name:     config.Name,
		interval: interval,
		sleep:    sleep,
		cycle:    cycle,
		handle:   handle,
		logger:   logger.With("loop", config.Name),
	}, nil
}

// Interval returns the pause between cycles.
func (l *Loop[R]) Interval() time.Duration {
	return l.interval
}

// Run executes cycles until ctx is cancelled and returns ctx.Err().
func (l *Loop[R]) Run(ctx context.Context) error {
	l.logger.Info("starting loop", "interval", l.interval)

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("stopping loop", "reason", err)
			return err
		}

		result := l.cycle(ctx)
		l.handle(ctx, result)

		if err := l.sleep(ctx, l.interval); err != nil {
			l.logger.Info("stopping loop", "reason", err)
			return err
		}
	}
}
