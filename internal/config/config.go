package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the watched, holding and state directories.
type Paths struct {
	WatchDir     string `toml:"watch_dir"`
	SecondaryDir string `toml:"secondary_dir"`
	HoldingDir   string `toml:"holding_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
}

// Verify controls classification and retention of relocated files.
type Verify struct {
	KeepProcessed  bool   `toml:"keep_processed"`
	ChunkSizeBytes int    `toml:"chunk_size_bytes"`
	OnCollision    string `toml:"on_collision"`
}

// Watch controls the notification backend and the worker pool.
type Watch struct {
	Backend   string `toml:"backend"`
	Workers   int    `toml:"workers"`
	QueueSize int    `toml:"queue_size"`
	SettleMS  int    `toml:"settle_ms"`
	Verbose   bool   `toml:"verbose"`
}

// API contains the optional HTTP status API settings.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Bad            bool   `toml:"bad"`
	Invalid        bool   `toml:"invalid"`
	Relocation     bool   `toml:"relocation"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format            string `toml:"format"`
	Level             string `toml:"level"`
	RetentionDays     int    `toml:"retention_days"`
	CompressAfterDays int    `toml:"compress_after_days"`
}

// Config encapsulates all configuration values for md5watch.
//
// Configuration sections by subsystem:
//   - Paths: watched directories, holding directory, state and log directories
//   - Verify: retention and collision handling for relocated files
//   - Watch: notification backend, worker pool sizing, verbose diagnostics
//   - API: optional HTTP status endpoint
//   - Notifications: ntfy alerts for corrupted or malformed arrivals
//   - Logging: log format, level, retention and archival
type Config struct {
	Paths         Paths         `toml:"paths"`
	Verify        Verify        `toml:"verify"`
	Watch         Watch         `toml:"watch"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/md5watch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithOverrides(path, Overrides{})
}

// LoadWithOverrides behaves like Load but applies command-line overrides after the
// file is decoded and before normalization and validation.
func LoadWithOverrides(path string, overrides Overrides) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.ApplyOverrides(overrides)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("md5watch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DualMode reports whether a secondary directory is being watched.
func (c *Config) DualMode() bool {
	return strings.TrimSpace(c.Paths.SecondaryDir) != ""
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "md5watch.lock")
}

// SocketPath returns the IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "md5watch.sock")
}

// PIDPath returns the watcher pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "md5watch.pid")
}

// LedgerPath returns the verification history database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "md5watch.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
