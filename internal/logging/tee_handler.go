package logging

import (
	"context"
	"log/slog"
)

// teeHandler sends each record to every handler that accepts its level.
type teeHandler struct {
	handlers []slog.Handler
}

// TeeHandler duplicates records to the non-nil handlers. With none left it
// returns NoopHandler; with one it returns that handler unwrapped.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	tee := &teeHandler{}
	for _, h := range handlers {
		if h != nil {
			tee.handlers = append(tee.handlers, h)
		}
	}
	switch len(tee.handlers) {
	case 0:
		return NoopHandler{}
	case 1:
		return tee.handlers[0]
	}
	return tee
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if h.Enabled(ctx, record.Level) {
			if err := h.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *teeHandler) each(fn func(slog.Handler) slog.Handler) *teeHandler {
	next := &teeHandler{handlers: make([]slog.Handler, len(t.handlers))}
	for i, h := range t.handlers {
		next.handlers[i] = fn(h)
	}
	return next
}
