package main

import (
	"strings"
	"testing"
	"time"

	"md5watch/internal/relocate"
	"md5watch/internal/report"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Time
		err   bool
	}{
		{value: "", want: time.Time{}},
		{value: "90m", want: now.Add(-90 * time.Minute)},
		{value: "2026-02-28T00:00:00Z", want: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
		{value: "-1h", err: true},
		{value: "yesterday", err: true},
	}
	for _, tt := range tests {
		got, err := parseSince(tt.value, now)
		if tt.err {
			if err == nil {
				t.Errorf("parseSince(%q) expected error", tt.value)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSince(%q): %v", tt.value, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseSince(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatCount(1234567); got != "1,234,567" {
		t.Errorf("formatCount = %q", got)
	}
	if got := formatBytes(512); got != "512 B" {
		t.Errorf("formatBytes(512) = %q", got)
	}
	if got := formatBytes(3 << 20); got != "3.0 MiB" {
		t.Errorf("formatBytes(3MiB) = %q", got)
	}
	if got := classificationLabel(report.Invalid); got != "Invalid" {
		t.Errorf("classificationLabel = %q", got)
	}
	if got := sourceLabel(relocate.TagSecondary); got != "secondary" {
		t.Errorf("sourceLabel = %q", got)
	}
}

func TestTableFooterKeepsCase(t *testing.T) {
	out := tableSpec{
		headers: []string{"Result", "Count"},
		rows:    [][]string{{"Good", "2"}},
		aligns:  []columnAlignment{alignLeft, alignRight},
		footer:  []string{"Total", "2"},
	}.render()
	if !strings.Contains(out, "Total") || strings.Contains(out, "TOTAL") {
		t.Fatalf("footer case not preserved:\n%s", out)
	}
}

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("Watcher", statusWarn, "Not running", false)
	want := "  Watcher:         [WARN] Not running"
	if got != want {
		t.Errorf("renderStatusLine = %q, want %q", got, want)
	}
	if colored := renderStatusLine("Watcher", statusOK, "", true); colored != ansiGreen+"  Watcher:         [OK]"+ansiReset {
		t.Errorf("unexpected colored line %q", colored)
	}
}
