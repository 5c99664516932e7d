package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// switchHandler sends records to whichever handler chain is current, so a
// logger handed out before Initialize picks up the configured outputs.
type switchHandler struct {
	current *atomic.Pointer[slog.Handler]
	// ops replays With/WithGroup calls onto the current chain.
	ops []func(slog.Handler) slog.Handler
}

func newSwitchHandler(h slog.Handler) *switchHandler {
	p := &atomic.Pointer[slog.Handler]{}
	p.Store(&h)
	return &switchHandler{current: p}
}

func (s *switchHandler) swap(h slog.Handler) {
	s.current.Store(&h)
}

func (s *switchHandler) resolve() slog.Handler {
	h := *s.current.Load()
	for _, op := range s.ops {
		h = op(h)
	}
	return h
}

func (s *switchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*s.current.Load()).Enabled(ctx, level)
}

func (s *switchHandler) Handle(ctx context.Context, r slog.Record) error {
	return s.resolve().Handle(ctx, r)
}

func (s *switchHandler) with(op func(slog.Handler) slog.Handler) *switchHandler {
	ops := make([]func(slog.Handler) slog.Handler, len(s.ops)+1)
	copy(ops, s.ops)
	ops[len(s.ops)] = op
	return &switchHandler{current: s.current, ops: ops}
}

func (s *switchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	return s.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (s *switchHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return s.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}
