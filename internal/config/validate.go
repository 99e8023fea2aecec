package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable. It does not touch the
// filesystem; see PrepareDirectories for the startup directory checks.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateVerify(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.WatchDir == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if c.Paths.HoldingDir == "" {
		return errors.New("paths.holding_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	holding := filepath.Clean(c.Paths.HoldingDir)
	if holding == filepath.Clean(c.Paths.WatchDir) {
		return errors.New("paths.holding_dir must differ from paths.watch_dir")
	}
	if c.DualMode() {
		secondary := filepath.Clean(c.Paths.SecondaryDir)
		if secondary == filepath.Clean(c.Paths.WatchDir) {
			return errors.New("paths.secondary_dir must differ from paths.watch_dir")
		}
		if secondary == holding {
			return errors.New("paths.holding_dir must differ from paths.secondary_dir")
		}
	}
	return nil
}

func (c *Config) validateVerify() error {
	switch c.Verify.OnCollision {
	case CollisionRename, CollisionReject:
	case CollisionOverwrite:
		if !c.Verify.KeepProcessed {
			return errors.New("verify.on_collision = \"overwrite\" requires verify.keep_processed = true")
		}
	default:
		return fmt.Errorf("verify.on_collision: unsupported value %q", c.Verify.OnCollision)
	}
	if c.Verify.ChunkSizeBytes < 4096 {
		return errors.New("verify.chunk_size_bytes must be at least 4096")
	}
	return nil
}

func (c *Config) validateWatch() error {
	switch c.Watch.Backend {
	case BackendInotify, BackendFsnotify:
	default:
		return fmt.Errorf("watch.backend: unsupported value %q", c.Watch.Backend)
	}
	if c.Watch.Workers <= 0 {
		return errors.New("watch.workers must be positive")
	}
	if c.Watch.QueueSize <= 0 {
		return errors.New("watch.queue_size must be positive")
	}
	if c.Watch.SettleMS < 0 {
		return errors.New("watch.settle_ms must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return errors.New("notifications.ntfy_topic must be a full http(s) URL")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	if c.Logging.CompressAfterDays < 0 {
		return errors.New("logging.compress_after_days must not be negative")
	}
	return nil
}
