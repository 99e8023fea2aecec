package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"md5watch/internal/relocate"
	"md5watch/internal/report"
)

var (
	countPrinter = message.NewPrinter(language.English)
	titleCaser   = cases.Title(language.English)
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatCount renders n with thousands separators.
func formatCount[T ~int | ~int64](n T) string {
	return countPrinter.Sprintf("%d", int64(n))
}

// classificationLabel renders GOOD as Good.
func classificationLabel(c report.Classification) string {
	return titleCaser.String(strings.ToLower(string(c)))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return countPrinter.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func sourceLabel(tag int) string {
	switch tag {
	case relocate.TagPrimary:
		return "primary"
	case relocate.TagSecondary:
		return "secondary"
	default:
		return "-"
	}
}

// parseSince accepts an RFC3339 timestamp or a duration measured back from now.
func parseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return time.Time{}, fmt.Errorf("invalid --since %q: use a duration such as 24h or an RFC3339 timestamp", value)
	}
	return now.Add(-d), nil
}
