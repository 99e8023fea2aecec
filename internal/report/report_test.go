package report_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"md5watch/internal/report"
)

func TestFormat(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 123456000, time.Local)
	tests := []struct {
		name string
		c    report.Classification
		tag  int
		dual bool
		want string
	}{
		{"good single", report.Good, 1, false, "[2026-03-04 05:06:07.123456] MD5 GOOD    : f"},
		{"bad single", report.Bad, 1, false, "[2026-03-04 05:06:07.123456] MD5 BAD     : f"},
		{"invalid single", report.Invalid, 1, false, "[2026-03-04 05:06:07.123456] MD5 INVALID : f"},
		{"secondary dual", report.Good, 2, true, "[2][2026-03-04 05:06:07.123456] MD5 GOOD    : f"},
		{"primary dual", report.Bad, 1, true, "[1][2026-03-04 05:06:07.123456] MD5 BAD     : f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := report.Format(ts, tt.c, "f", tt.tag, tt.dual); got != tt.want {
				t.Fatalf("Format = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReporterSerializesLines(t *testing.T) {
	var buf bytes.Buffer
	r := report.NewReporter(&buf, false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Report(report.Result{Name: "same-name", Classification: report.Good, SourceTag: 1})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 50 {
		t.Fatalf("expected 50 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, "] MD5 GOOD    : same-name") {
			t.Fatalf("malformed line %q", line)
		}
	}
}

func TestParseClassification(t *testing.T) {
	if c, ok := report.ParseClassification(" bad "); !ok || c != report.Bad {
		t.Fatalf("ParseClassification = %q, %v", c, ok)
	}
	if _, ok := report.ParseClassification("unknown"); ok {
		t.Fatal("expected unknown classification to be rejected")
	}
}

func TestHubFetchAndTail(t *testing.T) {
	h := report.NewHub(3)
	for _, name := range []string{"a", "b", "c", "d"} {
		h.Publish(report.Result{Name: name})
	}

	tail := h.Tail(10)
	if len(tail) != 3 || tail[0].Name != "b" || tail[2].Name != "d" {
		t.Fatalf("unexpected tail %+v", tail)
	}

	got, next, err := h.Fetch(context.Background(), 2, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "c" || next != 4 {
		t.Fatalf("unexpected fetch %+v next=%d", got, next)
	}

	got, next, _ = h.Fetch(context.Background(), 0, 1, false)
	if len(got) != 1 || got[0].Name != "b" || next != 2 {
		t.Fatalf("limited fetch should resume after the last returned result, got %+v next=%d", got, next)
	}
}

func TestHubFetchWaitsForPublish(t *testing.T) {
	h := report.NewHub(8)
	done := make(chan []report.Result, 1)
	go func() {
		got, _, _ := h.Fetch(context.Background(), 0, 0, true)
		done <- got
	}()

	time.Sleep(20 * time.Millisecond)
	h.Publish(report.Result{Name: "late"})

	select {
	case got := <-done:
		if len(got) != 1 || got[0].Name != "late" {
			t.Fatalf("unexpected results %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not wake on publish")
	}
}

func TestHubFetchHonoursCancellation(t *testing.T) {
	h := report.NewHub(8)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := h.Fetch(ctx, 0, 0, true)
		errCh <- err
	}()
	cancel()
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not return after cancel")
	}
}
