package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"md5watch/internal/config"
)

// CurrentLogName is the stable symlink pointing at the active run's log file.
const CurrentLogName = "md5watch.log"

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	// FilePath, when set, receives a JSON copy of every record regardless of Format.
	FilePath    string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	addSource := opts.Development || levelVar.Level() <= slog.LevelDebug

	out, err := openWriters(opts.OutputPaths)
	if err != nil {
		return nil, err
	}

	var primary slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		primary = newConsoleHandler(out, levelVar, addSource)
	case "json":
		primary = newJSONHandler(out, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if strings.TrimSpace(opts.FilePath) == "" {
		return slog.New(primary), nil
	}
	file, err := openLogFile(opts.FilePath)
	if err != nil {
		return nil, err
	}
	return slog.New(TeeHandler(primary, newJSONHandler(file, levelVar, addSource))), nil
}

// NewFromConfig creates the watcher logger: console (or JSON) records on
// stderr plus a run-scoped JSON log file under the configured log directory.
// It returns the log file path.
func NewFromConfig(cfg *config.Config, runID string) (*slog.Logger, string, error) {
	if cfg == nil {
		logger, err := New(Options{Level: "info", Format: "console"})
		return logger, "", err
	}
	opts := Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Watch.Verbose && strings.EqualFold(strings.TrimSpace(opts.Level), "info") {
		opts.Level = "debug"
	}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.FilePath = filepath.Join(dir, RunLogName(time.Now(), runID))
	}
	logger, err := New(opts)
	if err != nil {
		return nil, "", err
	}
	if opts.FilePath != "" {
		if err := pointCurrentLog(opts.FilePath); err != nil {
			WarnWithContext(logger, "current log link not updated", "log_link_failed",
				String("path", opts.FilePath),
				Error(err),
				String(FieldImpact, "md5watch.log points at an older run"),
				String(FieldErrorHint, "check log_dir permissions"),
			)
		}
	}
	return logger, opts.FilePath, nil
}

// RunLogName returns the per-run log file name.
func RunLogName(started time.Time, runID string) string {
	id := strings.TrimSpace(runID)
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "run"
	}
	return fmt.Sprintf("md5watch-%s-%s.log", started.UTC().Format("20060102T150405"), id)
}

func pointCurrentLog(target string) error {
	link := filepath.Join(filepath.Dir(target), CurrentLogName)
	if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Symlink(filepath.Base(target), link)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openWriters(paths []string) (io.Writer, error) {
	if len(paths) == 0 {
		return os.Stderr, nil
	}
	seen := make(map[string]struct{}, len(paths))
	var writers []io.Writer
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			file, err := openLogFile(trimmed)
			if err != nil {
				return nil, err
			}
			writers = append(writers, file)
		}
	}
	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
