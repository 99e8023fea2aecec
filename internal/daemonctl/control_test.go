package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"md5watch/internal/daemonctl"
	"md5watch/internal/report"
	"md5watch/internal/testsupport"
)

func TestStopAndTerminateWithoutWatcher(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(filepath.Join(t.TempDir(), "absent.sock"), cfg, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestForceKillRefusesCurrentProcess(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "md5watch.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := daemonctl.ForceKillProcess(pidPath, 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSecondary())
	testsupport.MustPrepare(t, cfg)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	if _, err := store.Record(ctx, report.Result{Name: "a.bin", SourceTag: 2, Classification: report.Bad, At: time.Now()}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	snap, err := daemonctl.BuildStatusSnapshot(ctx, cfg.SocketPath(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Reachable {
		t.Fatal("expected no reachable watcher")
	}
	if snap.Ledger.Total != 1 || snap.Ledger.Bad != 1 {
		t.Fatalf("unexpected offline ledger stats: %+v (err %q)", snap.Ledger, snap.LedgerError)
	}

	severities := map[string]string{}
	for _, line := range snap.Checks {
		severities[line.Label] = line.Severity
	}
	want := map[string]string{
		"Watcher":       "warn",
		"Watched dir":   "ok",
		"Second dir":    "ok",
		"Holding dir":   "ok",
		"Notifications": "info",
		"HTTP API":      "info",
	}
	for label, severity := range want {
		if severities[label] != severity {
			t.Fatalf("check %q: expected %s, got %q (%+v)", label, severity, severities[label], snap.Checks)
		}
	}
}

func TestBuildSystemChecksMissingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.WatchDir = filepath.Join(testsupport.BaseDir(cfg), "gone")
	for _, line := range daemonctl.BuildSystemChecks(cfg, true) {
		if line.Label == "Watched dir" {
			if line.Severity != "error" {
				t.Fatalf("expected error for missing dir, got %+v", line)
			}
			return
		}
	}
	t.Fatal("watched dir check missing")
}
