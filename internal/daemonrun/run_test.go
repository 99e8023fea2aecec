package daemonrun_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"md5watch/internal/config"
	"md5watch/internal/daemonctl"
	"md5watch/internal/daemonrun"
	"md5watch/internal/logging"
	"md5watch/internal/testsupport"
)

func TestRunRejectsMissingWatchDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.WatchDir = filepath.Join(testsupport.BaseDir(cfg), "missing")

	err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{Output: io.Discard})
	if !errors.Is(err, config.ErrInvalidDirectory) {
		t.Fatalf("expected ErrInvalidDirectory, got %v", err)
	}
}

func TestRunServesIPCUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- daemonrun.Run(ctx, cfg, daemonrun.Options{Output: io.Discard})
	}()

	client, err := daemonctl.WaitForClient(cfg.SocketPath(), 5*time.Second)
	if err != nil {
		t.Fatalf("watcher did not come up: %v", err)
	}
	status, err := client.Status()
	client.Close()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() {
		t.Fatalf("unexpected status: %+v", status.Status)
	}
	if _, err := os.Stat(cfg.Paths.HoldingDir); err != nil {
		t.Fatalf("expected holding dir to be created: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(cfg.Paths.LogDir, logging.CurrentLogName)); err != nil {
		t.Fatalf("expected current log link: %v", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v after cancel", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, err := os.Stat(cfg.SocketPath()); !os.IsNotExist(err) {
		t.Fatalf("expected socket removal, stat err=%v", err)
	}
	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removal, stat err=%v", err)
	}
}

func TestRunStopsOnIPCRequest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Level = "error"

	errCh := make(chan error, 1)
	go func() {
		errCh <- daemonrun.Run(context.Background(), cfg, daemonrun.Options{Output: io.Discard})
	}()
	client, err := daemonctl.WaitForClient(cfg.SocketPath(), 5*time.Second)
	if err != nil {
		t.Fatalf("watcher did not come up: %v", err)
	}
	client.Close()

	result, err := daemonctl.StopAndTerminate(cfg.SocketPath(), cfg, 5*time.Second)
	if err != nil {
		t.Fatalf("StopAndTerminate: %v", err)
	}
	if !result.StopAcknowledged || result.ForcedKill {
		t.Fatalf("unexpected stop result: %+v", result)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned %v after stop", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after stop")
	}
}
