package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"md5watch/internal/config"
	"md5watch/internal/ipc"
	"md5watch/internal/logging"
)

type commandContext struct {
	socketFlag *string
	configFlag *string

	overrides config.Overrides

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads the configuration once. Overrides must be set before the
// first call.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.LoadWithOverrides(c.configFlagValue(), c.overrides)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil {
		if socket := strings.TrimSpace(*c.socketFlag); socket != "" {
			return socket
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.SocketPath()
	}
	return defaultSocketPath()
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

// cliLogger writes console records to stderr for one-shot commands.
func (c *commandContext) cliLogger(verbose bool) (*slog.Logger, error) {
	level := "warn"
	if cfg := c.configValue(); cfg != nil && strings.TrimSpace(cfg.Logging.Level) != "" {
		level = cfg.Logging.Level
	}
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, Format: "console"})
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to watcher: socket %s not found; start it with `md5watch watch` or `md5watch start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to watcher: socket %s refused the connection; verify md5watch is running", socket)
	default:
		return fmt.Errorf("connect to watcher: %w", err)
	}
}

func defaultSocketPath() string {
	stateDir, err := config.ExpandPath("~/.local/share/md5watch")
	if err != nil {
		return filepath.Join(os.TempDir(), "md5watch.sock")
	}
	return filepath.Join(stateDir, "md5watch.sock")
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
