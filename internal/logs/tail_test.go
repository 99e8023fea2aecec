package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"md5watch/internal/logs"
)

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "md5watch.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{limit: 0, want: nil},
		{limit: 2, want: []string{"b", "c"}},
		{limit: 10, want: []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		res, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: tt.limit})
		if err != nil {
			t.Fatalf("limit %d: %v", tt.limit, err)
		}
		if strings.Join(res.Lines, ",") != strings.Join(tt.want, ",") {
			t.Fatalf("limit %d: got %#v, want %#v", tt.limit, res.Lines, tt.want)
		}
		if res.Offset != 6 {
			t.Fatalf("limit %d: offset %d, want 6", tt.limit, res.Offset)
		}
	}
}

func TestTailFollowWaits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "md5watch.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	opts := logs.TailOptions{Offset: -1, Limit: 1}
	result, err := logs.Tail(ctx, path, opts)
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(result.Lines) != 1 {
		t.Fatalf("expected initial line, got %#v", result.Lines)
	}

	done := make(chan struct{})
	go func(offset int64) {
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		if len(res.Lines) != 1 || res.Lines[0] != "later" {
			t.Errorf("unexpected follow lines: %#v", res.Lines)
		}
		close(done)
	}(result.Offset)

	time.Sleep(200 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat log: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}

func TestTailResumesAndSkipsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "md5watch.log")
	if err := os.WriteFile(path, []byte("one\ntwo\npart"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	first, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(first.Lines) != 2 || first.Lines[1] != "two" || first.Offset != int64(len("one\ntwo\n")) {
		t.Fatalf("unexpected first read: %+v", first)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("ial\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	second, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: first.Offset})
	if err != nil {
		t.Fatalf("tail resume: %v", err)
	}
	if len(second.Lines) != 1 || second.Lines[0] != "partial" {
		t.Fatalf("unexpected resumed lines: %#v", second.Lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	res, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "absent.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil || len(res.Lines) != 0 {
		t.Fatalf("expected empty result, got %+v, %v", res, err)
	}
}
