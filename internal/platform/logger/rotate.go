package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// LogFileName is the active log file inside the log directory.
	LogFileName = "foobar-daemon.log"

	// RetainedLogFiles is how many rotated files are kept.
	RetainedLogFiles = 14

	// maxLogFileMegabytes lifts lumberjack's 100 MB size trigger out of
	// reach so that one rotated file holds one day.
	maxLogFileMegabytes = 1 << 20
)

// newRotatingFile opens the log file set in dir. The directory is created
// if needed and the file is probed for writability so that a bad directory
// fails at startup instead of on the first write.
func newRotatingFile(dir string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close log file %s: %w", path, err)
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogFileMegabytes,
		MaxBackups: RetainedLogFiles,
		LocalTime:  true,
	}, nil
}

// dailyRotator rotates a lumberjack file at every local midnight.
// lumberjack only rotates on size by itself.
type dailyRotator struct {
	file     *lumberjack.Logger
	now      func() time.Time
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startDailyRotation(file *lumberjack.Logger) *dailyRotator {
	r := &dailyRotator{
		file: file,
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *dailyRotator) run() {
	defer close(r.done)

	for {
		now := r.now()
		timer := time.NewTimer(nextMidnight(now).Sub(now))

		select {
		case <-r.stop:
			timer.Stop()
			return
		case <-timer.C:
			if err := r.file.Rotate(); err != nil {
				fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
			}
		}
	}
}

// Stop ends the rotation goroutine and waits for it.
func (r *dailyRotator) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// nextMidnight returns the start of the day after t, in t's location.
func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
