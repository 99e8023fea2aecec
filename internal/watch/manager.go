package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"md5watch/internal/logging"
	"md5watch/internal/relocate"
)

// SubmitFunc hands a qualifying event to the processing pipeline.
type SubmitFunc func(ctx context.Context, ev ArrivalEvent) error

// Options configures a Manager.
type Options struct {
	Targets []relocate.Target
	Backend string
	Settle  time.Duration
	Verbose bool
}

// Stats summarises what the manager has seen.
type Stats struct {
	Backend   string `json:"backend"`
	Watching  bool   `json:"watching"`
	Observed  int64  `json:"observed"`
	Submitted int64  `json:"submitted"`
	Ignored   int64  `json:"ignored"`
	Overflows int64  `json:"overflows"`
}

// Manager owns the notification source for the watched targets.
type Manager struct {
	opts   Options
	submit SubmitFunc
	logger *slog.Logger
	open   func(string, []relocate.Target, SourceOptions) (Source, string, error)

	mu       sync.Mutex
	backend  string
	watching bool

	observed  atomic.Int64
	submitted atomic.Int64
	ignored   atomic.Int64
	overflows atomic.Int64
}

// NewManager constructs a Manager. submit is called for every qualifying event.
func NewManager(opts Options, submit SubmitFunc, logger *slog.Logger) *Manager {
	return &Manager{
		opts:   opts,
		submit: submit,
		logger: logging.NewComponentLogger(logger, "watch"),
		open:   OpenSource,
	}
}

// Run watches until ctx is cancelled. Files already present are reported
// through the logger, then qualifying events are submitted in arrival order.
// It returns nil on cancellation.
func (m *Manager) Run(ctx context.Context) error {
	src, backend, err := m.open(m.opts.Backend, m.opts.Targets, SourceOptions{Settle: m.opts.Settle})
	if err != nil {
		return fmt.Errorf("open watch source: %w", err)
	}
	defer src.Close()

	m.mu.Lock()
	m.backend = backend
	m.watching = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.watching = false
		m.mu.Unlock()
	}()

	if backend != m.opts.Backend && m.opts.Backend != "" {
		logging.WarnWithContext(m.logger, "watch backend unavailable; using fallback", "watch_backend_fallback",
			logging.String("requested", m.opts.Backend),
			logging.String("backend", backend),
			logging.String(logging.FieldImpact, "arrivals are detected after the settle interval"),
			logging.String(logging.FieldErrorHint, "use backend = \"inotify\" on Linux"),
		)
	}
	m.reportInventory()
	for _, target := range m.opts.Targets {
		m.logger.Info("watching directory",
			logging.String("path", target.Path),
			logging.Int(logging.FieldSourceTag, target.Tag),
			logging.String("backend", backend),
		)
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("watch stopping", logging.String(logging.FieldEventType, "watch_stopped"))
			return nil
		case ev, ok := <-src.Events():
			if !ok {
				return errors.New("watch source closed unexpectedly")
			}
			m.handle(ctx, ev)
		case err := <-src.Errors():
			logging.ErrorWithContext(m.logger, "watch source error", "watch_source_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check inotify limits (fs.inotify.max_user_watches)"),
			)
		}
	}
}

// Stats returns current counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	backend, watching := m.backend, m.watching
	m.mu.Unlock()
	return Stats{
		Backend:   backend,
		Watching:  watching,
		Observed:  m.observed.Load(),
		Submitted: m.submitted.Load(),
		Ignored:   m.ignored.Load(),
		Overflows: m.overflows.Load(),
	}
}

func (m *Manager) handle(ctx context.Context, ev ArrivalEvent) {
	m.observed.Add(1)
	switch {
	case ev.Kind == KindOverflow:
		m.overflows.Add(1)
		logging.WarnWithContext(m.logger, "notification queue overflowed; events were lost", "watch_overflow",
			logging.String(logging.FieldImpact, "some arrivals will not be classified"),
			logging.String(logging.FieldErrorHint, "raise fs.inotify.max_queued_events or reduce arrival rate"),
		)
		return
	case ev.Kind == KindWatchLost:
		logging.WarnWithContext(m.logger, "watched directory removed or unmounted", "watch_lost",
			logging.Int(logging.FieldSourceTag, ev.SourceTag),
			logging.String(logging.FieldImpact, "arrivals in this directory are no longer detected"),
			logging.String(logging.FieldErrorHint, "restart md5watch once the directory is back"),
		)
		return
	case !ev.Kind.Qualifies():
		m.ignored.Add(1)
		m.logger.Debug("event ignored",
			logging.String(logging.FieldFile, ev.Name),
			logging.Int(logging.FieldSourceTag, ev.SourceTag),
			logging.String("kind", ev.Kind.String()),
		)
		return
	}

	if m.opts.Verbose {
		m.logger.Debug("arrival detected",
			logging.String(logging.FieldFile, ev.Name),
			logging.Int(logging.FieldSourceTag, ev.SourceTag),
			logging.String("kind", ev.Kind.String()),
		)
	}
	if err := m.submit(ctx, ev); err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.ErrorWithContext(m.logger, "arrival not queued", "submit_failed",
			logging.String(logging.FieldFile, ev.Name),
			logging.Error(err),
		)
		return
	}
	m.submitted.Add(1)
}

func (m *Manager) reportInventory() {
	for _, entry := range TakeInventory(m.opts.Targets) {
		if entry.Err != nil {
			logging.WarnWithContext(m.logger, "startup inventory failed", "inventory_failed",
				logging.String("path", entry.Target.Path),
				logging.Error(entry.Err),
				logging.String(logging.FieldImpact, "pre-existing files are not listed"),
			)
			continue
		}
		if len(entry.Names) == 0 {
			m.logger.Info("directory empty at start",
				logging.String("path", entry.Target.Path),
				logging.Int(logging.FieldSourceTag, entry.Target.Tag),
			)
			continue
		}
		m.logger.Info("directory already contains files; they will not be processed",
			logging.String("path", entry.Target.Path),
			logging.Int(logging.FieldSourceTag, entry.Target.Tag),
			logging.Int("count", len(entry.Names)),
		)
		if m.opts.Verbose {
			for _, name := range entry.Names {
				m.logger.Debug("pre-existing file",
					logging.String(logging.FieldFile, name),
					logging.Int(logging.FieldSourceTag, entry.Target.Tag),
				)
			}
		}
	}
}
