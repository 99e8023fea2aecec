package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"md5watch/internal/config"
	"md5watch/internal/testsupport"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	socketPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MD5WATCH_NTFY_TOPIC", "")
	t.Setenv("MD5WATCH_API_TOKEN", "")
	t.Setenv("NO_COLOR", "1")

	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "md5watch.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, socketPath: cfg.SocketPath()}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// runCLI executes the root command with -c and --socket prepended when set.
func runCLI(t *testing.T, ctx context.Context, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr lockedBuffer
	err := runCLIWith(ctx, env, &stdout, &stderr, args...)
	return stdout.String(), stderr.String(), err
}

func runCLIWith(ctx context.Context, env *cliTestEnv, stdout, stderr *lockedBuffer, args ...string) error {
	full := make([]string, 0, len(args)+4)
	if env != nil {
		full = append(full, "--config", env.configPath, "--socket", env.socketPath)
	}
	full = append(full, args...)

	cmd := newRootCommand()
	cmd.SetArgs(full)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func requireNotContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if strings.Contains(haystack, needle) {
		t.Fatalf("expected output not to contain %q, got:\n%s", needle, haystack)
	}
}
