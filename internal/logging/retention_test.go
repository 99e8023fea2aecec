package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"md5watch/internal/logging"
)

func writeAged(t *testing.T, path, content string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-age)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
}

func TestCompressOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "md5watch-old.log")
	fresh := filepath.Join(dir, "md5watch-new.log")
	writeAged(t, old, "old contents\n", 5*24*time.Hour)
	writeAged(t, fresh, "new contents\n", time.Hour)

	logging.CompressOldLogs(logging.NewNop(), 3, logging.RetentionTarget{Dir: dir, Pattern: "md5watch-*.log"})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected original removed, got %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh log should remain: %v", err)
	}
	var buf bytes.Buffer
	if err := logging.DecompressLog(old+logging.CompressedSuffix, &buf); err != nil {
		t.Fatalf("DecompressLog: %v", err)
	}
	if buf.String() != "old contents\n" {
		t.Fatalf("round trip mismatch: %q", buf.String())
	}
}

func TestCleanupOldLogsHonoursExclusions(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "md5watch-a.log.zst")
	active := filepath.Join(dir, "md5watch-b.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, active, other} {
		writeAged(t, p, "x", 40*24*time.Hour)
	}

	logging.CleanupOldLogs(logging.NewNop(), 30, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "md5watch-*.log",
		Exclude: []string{active},
	})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected archive pruned, got %v", err)
	}
	for _, keep := range []string{active, other} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("%s should remain: %v", keep, err)
		}
	}
}

func TestRetentionDisabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "md5watch-x.log")
	writeAged(t, path, "x", 400*24*time.Hour)
	logging.CleanupOldLogs(nil, 0, logging.RetentionTarget{Dir: dir})
	logging.CompressOldLogs(nil, 0, logging.RetentionTarget{Dir: dir})
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should remain when retention disabled: %v", err)
	}
}
