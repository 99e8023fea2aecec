package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	pollInterval = 250 * time.Millisecond
	maxLineBytes = 1 << 20
)

// TailOptions selects where reading starts. A negative Offset returns the last
// Limit lines; otherwise reading resumes at Offset. With Follow, an empty read
// waits up to Wait for new lines.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult holds the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from the log at path. A missing file yields no lines.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var res TailResult
	if opts.Offset < 0 {
		res, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Rotated or truncated; start again from the top.
			offset = 0
		}
		res, err = linesFrom(path, offset)
	}
	if err != nil || len(res.Lines) > 0 || !opts.Follow || opts.Wait <= 0 {
		return res, err
	}
	return waitForLines(ctx, path, res.Offset, opts.Wait)
}

func lastLines(path string, limit int) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return TailResult{}, fmt.Errorf("seek log file: %w", err)
		}
		return TailResult{Offset: end}, nil
	}

	ring := make([]string, 0, limit)
	start := 0
	offset, err := scanLines(file, func(line string) {
		if len(ring) < limit {
			ring = append(ring, line)
			return
		}
		ring[start] = line
		start = (start + 1) % limit
	})
	if err != nil {
		return TailResult{}, err
	}
	lines := append(append([]string(nil), ring[start:]...), ring[:start]...)
	return TailResult{Lines: lines, Offset: offset}, nil
}

func linesFrom(path string, offset int64) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	end, err := scanLines(file, func(line string) { lines = append(lines, line) })
	if err != nil {
		return TailResult{Offset: offset}, err
	}
	return TailResult{Lines: lines, Offset: end}, nil
}

// scanLines feeds complete lines to fn and returns the offset just past the
// last complete line. A trailing partial line is left for the next read.
func scanLines(file *os.File, fn func(string)) (int64, error) {
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return pos, nil
		}
		if err != nil {
			return pos, fmt.Errorf("read log file: %w", err)
		}
		pos += int64(len(line))
		text := line[:len(line)-1]
		if len(text) > maxLineBytes {
			text = text[:maxLineBytes]
		}
		if n := len(text); n > 0 && text[n-1] == '\r' {
			text = text[:n-1]
		}
		fn(text)
	}
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-timer.C:
			return TailResult{Offset: offset}, nil
		case <-ticker.C:
		}
		res, err := linesFrom(path, offset)
		if err != nil || len(res.Lines) > 0 {
			return res, err
		}
		offset = res.Offset
	}
}
