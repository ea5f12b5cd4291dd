package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// swapRoot holds the handler currently receiving records.
type swapRoot struct {
	h atomic.Pointer[slog.Handler]
}

func (r *swapRoot) store(h slog.Handler) { r.h.Store(&h) }

func (r *swapRoot) load() slog.Handler { return *r.h.Load() }

// swapHandler forwards to the root's current handler, replaying the
// WithAttrs and WithGroup calls made on it.
type swapHandler struct {
	root *swapRoot
	ops  []func(slog.Handler) slog.Handler
}

func (h *swapHandler) current() slog.Handler {
	cur := h.root.load()
	for _, op := range h.ops {
		cur = op(cur)
	}
	return cur
}

func (h *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.root.load().Enabled(ctx, level)
}

func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *swapHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *swapHandler) with(op func(slog.Handler) slog.Handler) *swapHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &swapHandler{root: h.root, ops: append(ops, op)}
}
