package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"md5watch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The primary watch directory exists; the holding directory does not.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "incoming")
	cfgVal.Paths.HoldingDir = filepath.Join(base, "holding")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = ""
	if err := os.MkdirAll(cfgVal.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSecondary enables dual-directory mode with a second watched directory.
func WithSecondary() ConfigOption {
	return func(b *configBuilder) {
		dir := filepath.Join(b.baseDir, "incoming2")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.t.Fatalf("mkdir secondary dir: %v", err)
		}
		b.cfg.Paths.SecondaryDir = dir
	}
}

// WithKeep retains holding copies after classification.
func WithKeep() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Verify.KeepProcessed = true
	}
}

// WithCollision sets the holding directory collision policy.
func WithCollision(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Verify.OnCollision = policy
	}
}

// WithBackend selects the notification backend.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Backend = backend
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WatchDir)
}

// MustPrepare runs the startup directory checks and fails the test on error.
func MustPrepare(t testing.TB, cfg *config.Config) {
	t.Helper()
	if _, err := cfg.PrepareDirectories(); err != nil {
		t.Fatalf("PrepareDirectories: %v", err)
	}
}
