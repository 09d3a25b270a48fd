package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler duplicates log records to every wrapped slog.Handler. It is
// what lets the server log to stdout and the system_logs table at once.
type MultiHandler struct {
	targets []slog.Handler
}

func NewMultiHandler(targets ...slog.Handler) *MultiHandler {
	return &MultiHandler{targets: targets}
}

// Enabled reports whether at least one target wants records at this level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, t := range m.targets {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every enabled target. A failing target does
// not stop delivery to the others; errors are joined.
func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, t := range m.targets {
		if !t.Enabled(ctx, record.Level) {
			continue
		}
		if err := t.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.targets))
	for i, t := range m.targets {
		next[i] = t.WithAttrs(attrs)
	}
	return &MultiHandler{targets: next}
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.targets))
	for i, t := range m.targets {
		next[i] = t.WithGroup(name)
	}
	return &MultiHandler{targets: next}
}
