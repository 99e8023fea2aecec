package config

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrInvalidDirectory marks a watched or working directory that cannot be used.
var ErrInvalidDirectory = errors.New("invalid directory")

// DirectoryReport describes what PrepareDirectories had to do.
type DirectoryReport struct {
	HoldingCreated bool
}

// PrepareDirectories performs the startup directory checks: the watched
// directories must exist, the holding directory must be readable and
// writable (it is created when missing) and the state/log directories are
// created on demand. Failures wrap ErrInvalidDirectory.
func (c *Config) PrepareDirectories() (DirectoryReport, error) {
	var report DirectoryReport
	if err := requireDirectory(c.Paths.WatchDir); err != nil {
		return report, fmt.Errorf("%w: target directory %q does not exist or is inaccessible: %v", ErrInvalidDirectory, c.Paths.WatchDir, err)
	}
	if c.DualMode() {
		if err := requireDirectory(c.Paths.SecondaryDir); err != nil {
			return report, fmt.Errorf("%w: second target directory %q does not exist or is inaccessible: %v", ErrInvalidDirectory, c.Paths.SecondaryDir, err)
		}
	}
	if unix.Access(c.Paths.HoldingDir, unix.R_OK|unix.W_OK) != nil {
		if err := os.MkdirAll(c.Paths.HoldingDir, 0o755); err != nil {
			return report, fmt.Errorf("%w: create working directory %q: %v", ErrInvalidDirectory, c.Paths.HoldingDir, err)
		}
		if err := unix.Access(c.Paths.HoldingDir, unix.R_OK|unix.W_OK); err != nil {
			return report, fmt.Errorf("%w: working directory %q is not read/write accessible: %v", ErrInvalidDirectory, c.Paths.HoldingDir, err)
		}
		report.HoldingCreated = true
	}
	if err := c.EnsureStateDirectories(); err != nil {
		return report, err
	}
	return report, nil
}

// EnsureStateDirectories creates the state and log directories.
func (c *Config) EnsureStateDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func requireDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}
