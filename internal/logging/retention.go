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

	"github.com/klauspost/compress/zstd"
)

// CompressedSuffix is appended to archived log files.
const CompressedSuffix = ".zst"

// RetentionTarget specifies a directory and filename pattern to manage.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CompressOldLogs rewrites matching files older than afterDays as zstd
// archives and removes the originals. A value of 0 disables compression.
func CompressOldLogs(logger *slog.Logger, afterDays int, targets ...RetentionTarget) {
	if afterDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -afterDays)
	for _, path := range agedFiles(targets, cutoff) {
		if strings.HasSuffix(path, CompressedSuffix) {
			continue
		}
		if err := compressFile(path); err != nil {
			WarnWithContext(logger, "log compression failed; file left uncompressed", "log_compress_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check free space and log_dir permissions"),
				String(FieldImpact, "old log file uses more disk space"),
			)
			continue
		}
		if logger != nil {
			logger.Debug("log compressed", String("path", path), String(FieldEventType, "log_compressed"))
		}
	}
}

// CleanupOldLogs removes matching files older than retentionDays, including
// their compressed archives. A value of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, path := range agedFiles(targets, cutoff) {
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		if logger != nil {
			logger.Info("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
}

// DecompressLog streams a zstd archive to w.
func DecompressLog(path string, w io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	dec, err := zstd.NewReader(file)
	if err != nil {
		return fmt.Errorf("open zstd reader: %w", err)
	}
	defer dec.Close()
	_, err = io.Copy(w, dec)
	return err
}

func agedFiles(targets []RetentionTarget, cutoff time.Time) []string {
	exclusions := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if trimmed := strings.TrimSpace(path); trimmed != "" {
				if abs, err := filepath.Abs(trimmed); err == nil {
					exclusions[abs] = struct{}{}
				}
			}
		}
	}

	var out []string
	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			name := entry.Name()
			if pat := strings.TrimSpace(target.Pattern); pat != "" {
				base := strings.TrimSuffix(name, CompressedSuffix)
				if matched, err := filepath.Match(pat, base); err != nil || !matched {
					continue
				}
			}
			full := filepath.Join(dir, name)
			if abs, err := filepath.Abs(full); err == nil {
				full = abs
			}
			if _, skip := exclusions[full]; skip {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			out = append(out, full)
		}
	}
	return out
}

func compressFile(path string) (err error) {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	dst := path + CompressedSuffix
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("open zstd writer: %w", err)
	}
	if _, err = io.Copy(enc, in); err != nil {
		_ = enc.Close()
		return err
	}
	if err = enc.Close(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	// Keep the original mtime so retention ages the archive from the same point.
	if err = os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return rmErr
	}
	return nil
}
