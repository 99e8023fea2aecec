package daemonrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"md5watch/internal/config"
	"md5watch/internal/daemon"
	"md5watch/internal/ipc"
	"md5watch/internal/ledger"
	"md5watch/internal/logging"
)

// Options configures watcher process runtime behavior.
type Options struct {
	// SocketPath overrides the IPC socket location.
	SocketPath string
	// Output receives classification lines; defaults to stdout.
	Output io.Writer
}

// Run starts the watcher and blocks until SIGINT/SIGTERM, an IPC stop request
// or a watcher failure. Startup problems are returned as errors; a graceful
// shutdown returns nil.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dirs, err := cfg.PrepareDirectories()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger, logPath, err := logging.NewFromConfig(cfg, runID)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldRunID, runID))
	if dirs.HoldingCreated {
		logger.Info("working directory created",
			logging.String("path", cfg.Paths.HoldingDir),
			logging.String(logging.FieldEventType, "holding_dir_created"),
		)
	}

	logTarget := logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "md5watch-*.log", Exclude: []string{logPath}}
	logging.CompressOldLogs(logger, cfg.Logging.CompressAfterDays, logTarget)
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logTarget)
	logConfigSnapshot(logger, cfg)

	store, err := ledger.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open ledger", "ledger_open_failed",
			logging.Error(err),
			logging.String("path", cfg.LedgerPath()),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or remove a corrupt md5watch.db"),
		)
		return err
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	d, err := daemon.New(cfg, store, logger, daemon.Options{
		RunID:   runID,
		LogPath: logPath,
		Output:  output,
	})
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// The lock must be held before the socket is replaced.
	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	select {
	case <-signalCtx.Done():
		logger.Info("md5watch shutting down", logging.String(logging.FieldEventType, "shutdown_requested"))
	case <-d.Done():
	}
	d.Stop()
	return d.Err()
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("watch_dir", cfg.Paths.WatchDir),
		logging.String("secondary_dir", cfg.Paths.SecondaryDir),
		logging.String("holding_dir", cfg.Paths.HoldingDir),
		logging.Bool("keep_processed", cfg.Verify.KeepProcessed),
		logging.String("on_collision", cfg.Verify.OnCollision),
		logging.String("backend", cfg.Watch.Backend),
		logging.Int("workers", cfg.Watch.Workers),
		logging.Bool("api_enabled", strings.TrimSpace(cfg.API.Bind) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
