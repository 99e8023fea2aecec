package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"md5watch/internal/config"
	"md5watch/internal/logging"
)

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, path, err := logging.NewFromConfig(&cfg, "0123456789abcdef")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("watcher started", logging.String(logging.FieldRunID, "0123456789abcdef"))

	if !strings.HasSuffix(path, "-01234567.log") {
		t.Fatalf("unexpected run log path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("run log is not JSON: %v (%q)", err, data)
	}
	if record["msg"] != "watcher started" {
		t.Fatalf("unexpected record %v", record)
	}

	target, err := os.Readlink(filepath.Join(cfg.Paths.LogDir, logging.CurrentLogName))
	if err != nil {
		t.Fatalf("read current log link: %v", err)
	}
	if target != filepath.Base(path) {
		t.Fatalf("current log link = %q, want %q", target, filepath.Base(path))
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "verifier").Info("file relocated",
		logging.String(logging.FieldFile, "a b.txt"),
		logging.Int(logging.FieldSourceTag, 2),
	)
	logger.Debug("hidden")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"INFO verifier: file relocated", `file="a b.txt"`, "source_tag=2"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug record leaked at info level: %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with caller")

	content, _ := os.ReadFile(logPath)
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "hash failed", "hash_failed", logging.String(logging.FieldImpact, "file skipped"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "hash_failed" {
		t.Fatalf("event_type = %v", record[logging.FieldEventType])
	}
	if record[logging.FieldImpact] != "file skipped" {
		t.Fatalf("impact should be preserved, got %v", record[logging.FieldImpact])
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint")
	}
}

func TestRunLogName(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := logging.RunLogName(ts, "abc"); got != "md5watch-20260102T030405-abc.log" {
		t.Fatalf("RunLogName = %q", got)
	}
	if got := logging.RunLogName(ts, ""); got != "md5watch-20260102T030405-run.log" {
		t.Fatalf("RunLogName empty id = %q", got)
	}
}
