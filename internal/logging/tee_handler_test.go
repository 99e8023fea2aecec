package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerNilHandlers(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler for all nil handlers")
	}
}

func TestTeeHandlerSingleHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := TeeHandler(nil, inner); h != inner {
		t.Fatal("expected single non-nil handler to be returned unwrapped")
	}
}

func TestTeeHandlerRespectsLevels(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	h := TeeHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With(slog.String(FieldComponent, "watch"))

	logger.Debug("debug only")
	logger.Info("both")

	if strings.Contains(infoBuf.String(), "debug only") {
		t.Fatal("info handler received debug record")
	}
	if !strings.Contains(debugBuf.String(), "debug only") || !strings.Contains(debugBuf.String(), "both") {
		t.Fatalf("debug handler missing records: %q", debugBuf.String())
	}
	if !strings.Contains(infoBuf.String(), `"component":"watch"`) {
		t.Fatalf("attrs not propagated: %q", infoBuf.String())
	}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee enabled when any handler accepts the level")
	}
}
