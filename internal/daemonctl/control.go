package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"md5watch/internal/config"
	"md5watch/internal/daemon"
	"md5watch/internal/ipc"
	"md5watch/internal/ledger"
	"md5watch/internal/relocate"
)

// ErrDaemonNotRunning indicates watcher IPC is unavailable.
var ErrDaemonNotRunning = errors.New("md5watch is not running")

// LaunchOptions controls background launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	Args       []string
}

// StopResult captures stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// StatusLine is one row of the status check table.
type StatusLine struct {
	Label    string
	Severity string
	Detail   string
}

// Snapshot combines live watcher status with offline fallbacks.
type Snapshot struct {
	Reachable   bool
	Status      daemon.Status
	Ledger      ledger.Stats
	LedgerError string
	Checks      []StatusLine
}

// Launch starts a detached `md5watch watch` process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"watch"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	args = append(args, opts.Args...)

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch watcher: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for watcher")
	}
	return nil, fmt.Errorf("watcher failed to start: %w", lastErr)
}

// WaitForShutdown waits for watcher IPC to disappear or report not-running.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isDaemonUnavailable(err) {
				return nil
			}
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		status, statusErr := client.Status()
		_ = client.Close()
		if statusErr == nil && !status.Running {
			return nil
		}
		if statusErr != nil {
			lastErr = statusErr
		} else {
			lastErr = fmt.Errorf("watcher still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for shutdown")
	}
	return fmt.Errorf("watcher did not stop: %w", lastErr)
}

// ProcessInfo returns whether watcher IPC is reachable and its PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, statusErr := client.Status()
	if statusErr != nil {
		return true, 0, statusErr
	}
	return true, status.PID, nil
}

// ForceKillProcess sends SIGKILL to the watcher and cleans the pid file.
func ForceKillProcess(pidPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	data, err := os.ReadFile(pidPath)
	if err == nil {
		if parsed, parseErr := strconv.Atoi(strings.TrimSpace(string(data))); parseErr == nil && parsed > 0 {
			pid = parsed
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine watcher pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate watcher process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill watcher process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	return pid, nil
}

// StopAndTerminate requests a graceful stop and force-kills the process if it
// is still alive after gracePeriod.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	pid := 0
	if statusResp, statusErr := client.Status(); statusErr == nil {
		pid = statusResp.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: pid, StopAcknowledged: resp.Stopped}

	if err := WaitForShutdown(socketPath, gracePeriod); err == nil {
		return result, nil
	}
	alive, livePID, aliveErr := ProcessInfo(socketPath)
	if aliveErr != nil || !alive {
		return result, nil
	}

	if livePID == 0 {
		livePID = pid
	}
	killedPID, killErr := ForceKillProcess(cfg.PIDPath(), livePID)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop watcher process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// BuildStatusSnapshot collects watcher status and falls back to reading the
// ledger directly when no watcher is reachable.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{}

	if client, err := ipc.Dial(socketPath); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil {
			snap.Reachable = true
			snap.Status = resp.Status
			snap.Ledger = resp.Ledger
			snap.LedgerError = resp.LedgerError
		}
	}

	if !snap.Reachable {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		stats, err := offlineLedgerStats(queryCtx, cfg)
		if err != nil {
			snap.LedgerError = err.Error()
		} else {
			snap.Ledger = stats
		}
	}

	snap.Checks = BuildSystemChecks(cfg, snap.Reachable && snap.Status.Running)
	return snap, nil
}

func offlineLedgerStats(ctx context.Context, cfg *config.Config) (ledger.Stats, error) {
	path := cfg.LedgerPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ledger.Stats{}, nil
		}
		return ledger.Stats{}, err
	}
	store, err := ledger.OpenPath(path)
	if err != nil {
		return ledger.Stats{}, err
	}
	defer store.Close()
	return store.Stats(ctx)
}

// BuildSystemChecks resolves status lines that combine runtime state and config checks.
func BuildSystemChecks(cfg *config.Config, running bool) []StatusLine {
	lines := make([]StatusLine, 0, 6)
	if running {
		lines = append(lines, StatusLine{Label: "Watcher", Severity: "ok", Detail: "Running"})
	} else {
		lines = append(lines, StatusLine{Label: "Watcher", Severity: "warn", Detail: "Not running (run `md5watch watch`)"})
	}

	for _, target := range daemon.Targets(cfg) {
		label := "Watched dir"
		if target.Tag == relocate.TagSecondary {
			label = "Second dir"
		}
		lines = append(lines, directoryCheck(label, target.Path, unix.R_OK|unix.W_OK|unix.X_OK))
	}
	lines = append(lines, directoryCheck("Holding dir", cfg.Paths.HoldingDir, unix.R_OK|unix.W_OK))

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
	}
	if bind := strings.TrimSpace(cfg.API.Bind); bind != "" {
		lines = append(lines, StatusLine{Label: "HTTP API", Severity: "ok", Detail: bind})
	} else {
		lines = append(lines, StatusLine{Label: "HTTP API", Severity: "info", Detail: "Disabled"})
	}
	return lines
}

func directoryCheck(label, path string, mode uint32) StatusLine {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return StatusLine{Label: label, Severity: "error", Detail: path + " (missing)"}
	case err != nil:
		return StatusLine{Label: label, Severity: "error", Detail: fmt.Sprintf("%s (%v)", path, err)}
	case !info.IsDir():
		return StatusLine{Label: label, Severity: "error", Detail: path + " (not a directory)"}
	}
	if err := unix.Access(path, mode); err != nil {
		return StatusLine{Label: label, Severity: "error", Detail: fmt.Sprintf("%s (%v)", path, err)}
	}
	return StatusLine{Label: label, Severity: "ok", Detail: path}
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
