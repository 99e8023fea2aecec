package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVerify()
	c.normalizeWatch()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		c.Paths.WatchDir = defaultWatchDir
	}
	if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	c.Paths.SecondaryDir = strings.TrimSpace(c.Paths.SecondaryDir)
	if c.Paths.SecondaryDir, err = expandPath(c.Paths.SecondaryDir); err != nil {
		return fmt.Errorf("paths.secondary_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HoldingDir) == "" {
		c.Paths.HoldingDir = defaultHoldingDir
	}
	if c.Paths.HoldingDir, err = expandPath(c.Paths.HoldingDir); err != nil {
		return fmt.Errorf("paths.holding_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeVerify() {
	c.Verify.OnCollision = strings.ToLower(strings.TrimSpace(c.Verify.OnCollision))
	if c.Verify.OnCollision == "" {
		c.Verify.OnCollision = defaultOnCollision
	}
	if c.Verify.ChunkSizeBytes == 0 {
		c.Verify.ChunkSizeBytes = defaultChunkSizeBytes
	}
}

func (c *Config) normalizeWatch() {
	c.Watch.Backend = strings.ToLower(strings.TrimSpace(c.Watch.Backend))
	if c.Watch.Backend == "" {
		c.Watch.Backend = defaultBackend
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("MD5WATCH_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("MD5WATCH_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(value)
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
