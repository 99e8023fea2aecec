package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"md5watch/internal/config"
	"md5watch/internal/dispatch"
	"md5watch/internal/hashcodec"
	"md5watch/internal/ledger"
	"md5watch/internal/logging"
	"md5watch/internal/notifications"
	"md5watch/internal/relocate"
	"md5watch/internal/report"
	"md5watch/internal/verifier"
	"md5watch/internal/watch"
)

// Options carries the run-scoped collaborators created by the caller.
// Zero values fall back to stdout, a fresh hub and the configured notifier.
type Options struct {
	RunID    string
	LogPath  string
	Output   io.Writer
	Hub      *report.Hub
	Notifier notifications.Service
}

// Daemon coordinates the watcher, the verification pool and the status
// surfaces, and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *ledger.Store
	hub      *report.Hub
	notifier notifications.Service
	verifier *verifier.Verifier
	targets  []relocate.Target
	runID    string
	logPath  string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	lifecycle sync.Mutex
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	runErr    error
	startedAt time.Time
	manager   *watch.Manager
	pool      *dispatch.Dispatcher[watch.ArrivalEvent]
	api       *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool              `json:"running"`
	PID           int               `json:"pid"`
	RunID         string            `json:"run_id"`
	StartedAt     time.Time         `json:"started_at"`
	Targets       []relocate.Target `json:"targets"`
	HoldingDir    string            `json:"holding_dir"`
	DualMode      bool              `json:"dual_mode"`
	KeepProcessed bool              `json:"keep_processed"`
	LockPath      string            `json:"lock_path"`
	LedgerPath    string            `json:"ledger_path"`
	LogPath       string            `json:"log_path"`
	Watch         watch.Stats       `json:"watch"`
	Dispatch      dispatch.Stats    `json:"dispatch"`
	Verifier      verifier.Stats    `json:"verifier"`
	Ledger        ledger.Stats      `json:"ledger"`
	LedgerError   string            `json:"ledger_error,omitempty"`
}

// Targets returns the watched directories in tag order.
func Targets(cfg *config.Config) []relocate.Target {
	targets := []relocate.Target{{Path: cfg.Paths.WatchDir, Tag: relocate.TagPrimary}}
	if cfg.DualMode() {
		targets = append(targets, relocate.Target{Path: cfg.Paths.SecondaryDir, Tag: relocate.TagSecondary})
	}
	return targets
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *ledger.Store, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, ledger store, and logger")
	}

	targets := Targets(cfg)
	relocator, err := relocate.New(cfg.Paths.HoldingDir, targets, relocate.Options{
		OnCollision: relocate.CollisionPolicy(cfg.Verify.OnCollision),
	})
	if err != nil {
		return nil, fmt.Errorf("create relocator: %w", err)
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	hub := opts.Hub
	if hub == nil {
		hub = report.NewHub(512)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	v := verifier.New(verifier.Deps{
		Relocator: relocator,
		Hasher:    hashcodec.NewHasher(cfg.Verify.ChunkSizeBytes),
		Reporter:  report.NewReporter(output, cfg.DualMode()),
		Recorder:  store,
		Publisher: hub,
		Notifier:  notifier,
		Logger:    logger,
	}, verifier.Options{
		KeepProcessed: cfg.Verify.KeepProcessed,
		Verbose:       cfg.Watch.Verbose,
		RunID:         opts.RunID,
	})

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		hub:      hub,
		notifier: notifier,
		verifier: v,
		targets:  targets,
		runID:    opts.RunID,
		logPath:  opts.LogPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, starts the verification pool, the watch
// manager and the optional HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another md5watch instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	// Queued verifications finish after the watcher stops.
	pool := dispatch.New(context.WithoutCancel(ctx), dispatch.Options{
		Workers:   d.cfg.Watch.Workers,
		QueueSize: d.cfg.Watch.QueueSize,
	}, func(ev watch.ArrivalEvent) string { return ev.Key() }, d.verifier.Handle)

	manager := watch.NewManager(watch.Options{
		Targets: d.targets,
		Backend: d.cfg.Watch.Backend,
		Settle:  time.Duration(d.cfg.Watch.SettleMS) * time.Millisecond,
		Verbose: d.cfg.Watch.Verbose,
	}, pool.Submit, d.logger)

	api, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil {
		err = api.start(runCtx)
	}
	if err != nil {
		cancel()
		pool.Close()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	done := make(chan struct{})
	d.mu.Lock()
	d.cancel = cancel
	d.done = done
	d.runErr = nil
	d.manager = manager
	d.pool = pool
	d.api = api
	d.startedAt = time.Now()
	d.mu.Unlock()
	d.running.Store(true)

	go d.run(runCtx, manager, pool, done)

	d.logger.Info("md5watch daemon started",
		logging.String("lock", d.lockPath),
		logging.String("holding_dir", d.cfg.Paths.HoldingDir),
		logging.Bool("dual_mode", d.cfg.DualMode()),
		logging.Int("workers", pool.Stats().Workers),
	)
	return nil
}

func (d *Daemon) run(ctx context.Context, manager *watch.Manager, pool *dispatch.Dispatcher[watch.ArrivalEvent], done chan struct{}) {
	err := manager.Run(ctx)
	pool.Close()
	if err != nil {
		logging.ErrorWithContext(d.logger, "watcher stopped", "watch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the watched directories exist and inotify limits are sufficient"),
			logging.String(logging.FieldImpact, "new arrivals are no longer verified"),
		)
	}
	d.runErr = err
	close(done)
}

// Done is closed once the watcher has stopped and queued verifications have
// finished. It is nil before Start.
func (d *Daemon) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Err returns the watcher failure, if any, once Done is closed.
func (d *Daemon) Err() error {
	d.mu.Lock()
	done := d.done
	d.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return d.runErr
	default:
		return nil
	}
}

// Stop stops watching, waits for in-flight verifications and releases the
// daemon lock.
func (d *Daemon) Stop() {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()
	if !d.running.Load() {
		return
	}

	d.mu.Lock()
	cancel, done, api := d.cancel, d.done, d.api
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	<-done
	api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)

	stats := d.verifier.Stats()
	d.logger.Info("md5watch daemon stopped",
		logging.Int64("processed", stats.Processed),
		logging.Int64("good", stats.Good),
		logging.Int64("bad", stats.Bad),
		logging.Int64("invalid", stats.Invalid),
	)
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not run yet.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Hub returns the live result buffer.
func (d *Daemon) Hub() *report.Hub {
	return d.hub
}

// APIAddr returns the address the HTTP API listens on, or "" when disabled.
func (d *Daemon) APIAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.api.addr()
}

// LogPath returns the path to the run log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Recent returns the newest ledger records matching filter.
func (d *Daemon) Recent(ctx context.Context, limit int, filter ledger.Filter) ([]ledger.Record, error) {
	if d.store == nil {
		return nil, errors.New("ledger unavailable")
	}
	return d.store.Recent(ctx, limit, filter)
}

// DatabaseHealth returns detailed ledger diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (ledger.DatabaseHealth, error) {
	if d.store == nil {
		return ledger.DatabaseHealth{}, errors.New("ledger unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	manager, pool, started := d.manager, d.pool, d.startedAt
	d.mu.Unlock()

	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		RunID:         d.runID,
		StartedAt:     started,
		Targets:       d.targets,
		HoldingDir:    d.cfg.Paths.HoldingDir,
		DualMode:      d.cfg.DualMode(),
		KeepProcessed: d.cfg.Verify.KeepProcessed,
		LockPath:      d.lockPath,
		LedgerPath:    d.store.Path(),
		LogPath:       d.logPath,
		Verifier:      d.verifier.Stats(),
	}
	if manager != nil {
		status.Watch = manager.Stats()
	}
	if pool != nil {
		status.Dispatch = pool.Stats()
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		status.LedgerError = err.Error()
	} else {
		status.Ledger = stats
	}
	return status
}
