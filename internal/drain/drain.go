package drain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"md5watch/internal/logging"
	"md5watch/internal/relocate"
	"md5watch/internal/watch"
)

var (
	// ErrEmpty is returned when the directory holds nothing to drain.
	ErrEmpty = errors.New("directory is empty")
	// ErrNotDirectory is returned when the path is missing or not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// Options tunes Run.
type Options struct {
	Backend string
	Logger  *slog.Logger
	Verbose bool
	// OnStart, when set, is called once when the clock starts.
	OnStart func(trigger, name string, at time.Time)
}

// Result describes a completed drain.
type Result struct {
	Dir       string
	Backend   string
	Trigger   string
	StartedAt time.Time
	EmptiedAt time.Time
	// Duration is truncated to whole seconds.
	Duration time.Duration
	Events   int
}

// Run blocks until dir has been emptied or ctx ends.
func Run(ctx context.Context, dir string, opts Options) (Result, error) {
	res := Result{Dir: dir}
	logger := logging.NewComponentLogger(opts.Logger, "drain")

	info, err := os.Stat(dir)
	if err != nil {
		return res, fmt.Errorf("%w: %q does not exist or is inaccessible: %v", ErrNotDirectory, dir, err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("%w: %q", ErrNotDirectory, dir)
	}
	remaining, err := countEntries(dir)
	if err != nil {
		return res, err
	}
	if remaining == 0 {
		return res, fmt.Errorf("%w: %q must contain files before draining starts", ErrEmpty, dir)
	}

	src, backend, err := watch.OpenSource(opts.Backend,
		[]relocate.Target{{Path: dir, Tag: relocate.TagPrimary}},
		watch.SourceOptions{Drain: true})
	if err != nil {
		return res, fmt.Errorf("open watch source: %w", err)
	}
	defer src.Close()
	res.Backend = backend
	logger.Info("waiting for the first read",
		logging.String("path", dir),
		logging.Int("files", remaining),
		logging.String("backend", backend),
	)

	started := false
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case err := <-src.Errors():
			logging.WarnWithContext(logger, "drain watch error", "drain_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the measured duration may be late"),
			)
		case ev, ok := <-src.Events():
			if !ok {
				return res, errors.New("watch source closed unexpectedly")
			}
			res.Events++
			if opts.Verbose {
				logger.Debug("drain event",
					logging.String(logging.FieldFile, ev.Name),
					logging.String("kind", ev.Kind.String()),
				)
			}
			if !started && startsClock(ev.Kind) {
				started = true
				res.StartedAt = time.Now()
				res.Trigger = ev.Kind.String()
				logger.Info("drain timer started",
					logging.String(logging.FieldFile, ev.Name),
					logging.String("trigger", res.Trigger),
				)
				if opts.OnStart != nil {
					opts.OnStart(res.Trigger, ev.Name, res.StartedAt)
				}
			}
			if !started {
				continue
			}
			if ev.Kind == watch.KindWatchLost {
				return res, fmt.Errorf("watch on %q lost", dir)
			}
			remaining, err := countEntries(dir)
			if err != nil {
				return res, err
			}
			if remaining > 0 {
				if opts.Verbose {
					logger.Debug("files remaining", logging.Int("count", remaining))
				}
				continue
			}
			res.EmptiedAt = time.Now()
			res.Duration = res.EmptiedAt.Sub(res.StartedAt).Truncate(time.Second)
			logger.Info("directory emptied",
				logging.String("path", dir),
				logging.Duration("duration", res.Duration),
				logging.Int("events", res.Events),
			)
			return res, nil
		}
	}
}

func startsClock(kind watch.EventKind) bool {
	switch kind {
	case watch.KindOpened, watch.KindAccessed, watch.KindClosedReadOnly,
		watch.KindMovedOut, watch.KindDeleted:
		return true
	}
	return false
}

func countEntries(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read directory %q: %w", dir, err)
	}
	return len(entries), nil
}

// FormatDuration renders d as H:MM:SS.
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%d:%02d:%02d", h, m, d/time.Second)
}
