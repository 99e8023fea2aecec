package ipc_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"md5watch/internal/daemon"
	"md5watch/internal/ipc"
	"md5watch/internal/logging"
	"md5watch/internal/report"
	"md5watch/internal/testsupport"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustPrepare(t, cfg)
	store := testsupport.MustOpenLedger(t, cfg)
	logger := logging.NewNop()
	d, err := daemon.New(cfg, store, logger, daemon.Options{RunID: "ipc-test", Output: io.Discard})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	for _, res := range []report.Result{
		{Name: "one.bin", SourceTag: 1, Classification: report.Good, At: time.Now()},
		{Name: "two.bin", SourceTag: 1, Classification: report.Bad, At: time.Now()},
	} {
		if _, err := store.Record(ctx, res); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	socket := filepath.Join(cfg.Paths.StateDir, "md5watch.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.RunID != "ipc-test" {
		t.Fatalf("unexpected status: %+v", status.Status)
	}
	if status.Ledger.Total != 2 || status.Ledger.Bad != 1 {
		t.Fatalf("unexpected ledger stats: %+v", status.Ledger)
	}

	recent, err := client.Recent(ipc.RecentRequest{Limit: 10, Classification: "bad"})
	if err != nil {
		t.Fatalf("Recent RPC failed: %v", err)
	}
	if len(recent.Items) != 1 || recent.Items[0].Name != "two.bin" {
		t.Fatalf("unexpected recent items: %+v", recent.Items)
	}

	if _, err := client.Recent(ipc.RecentRequest{Classification: "maybe"}); err == nil {
		t.Fatal("expected error for unknown classification")
	}

	health, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth RPC failed: %v", err)
	}
	if !health.DatabaseExists || health.TotalRecords != 2 {
		t.Fatalf("unexpected health: %+v", health.DatabaseHealth)
	}

	notify, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if notify.Sent {
		t.Fatal("expected no notification without a topic")
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected Stop to report stopped")
	}
	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status after stop failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to report stopped")
	}
}

func TestDialMissingSocket(t *testing.T) {
	if _, err := ipc.Dial(filepath.Join(t.TempDir(), "absent.sock")); err == nil {
		t.Fatal("expected dial error for missing socket")
	}
}
