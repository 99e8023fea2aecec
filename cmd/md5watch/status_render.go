package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"md5watch/internal/report"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(base, statusKindColor(kind), colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{paint(line, ansiBlue, colorize), paint(rule, ansiBlue, colorize)}
}

// renderClassificationLine colours a report line by its verdict.
func renderClassificationLine(line string, c report.Classification, colorize bool) string {
	switch c {
	case report.Good:
		return paint(line, ansiGreen, colorize)
	case report.Bad:
		return paint(line, ansiRed, colorize)
	default:
		return paint(line, ansiYellow, colorize)
	}
}

func paint(value, color string, colorize bool) string {
	if !colorize || color == "" {
		return value
	}
	return color + value + ansiReset
}

func statusKindFromSeverity(severity string) statusKind {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "ok":
		return statusOK
	case "warn", "warning":
		return statusWarn
	case "error":
		return statusError
	default:
		return statusInfo
	}
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func shouldColorize(writer io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
