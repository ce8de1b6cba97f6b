package logbuf

import (
	"context"
	"log/slog"
)

// Handler is an slog.Handler that captures records into a Buffer
// and delegates to an inner handler.
type Handler struct {
	inner  slog.Handler
	buf    *Buffer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewHandler creates a handler that writes to both buf and inner. Records
// below level are not buffered; inner applies its own filter.
func NewHandler(inner slog.Handler, buf *Buffer, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &Handler{inner: inner, buf: buf, level: level}
}

func (h *Handler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() || h.inner.Enabled(ctx, l)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
		for _, a := range h.attrs {
			attrs[a.Key] = resolve(a.Value)
		}
		prefix := ""
		for _, g := range h.groups {
			prefix += g + "."
		}
		r.Attrs(func(a slog.Attr) bool {
			attrs[prefix+a.Key] = resolve(a.Value)
			return true
		})
		if len(attrs) == 0 {
			attrs = nil
		}
		h.buf.Write(Entry{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: attrs})
	}

	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

// resolve flattens errors to their message so entries render readably.
func resolve(v slog.Value) any {
	raw := v.Resolve().Any()
	if err, ok := raw.(error); ok {
		return err.Error()
	}
	return raw
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := ""
	for _, g := range h.groups {
		prefix += g + "."
	}
	bound := h.attrs[:len(h.attrs):len(h.attrs)]
	for _, a := range attrs {
		bound = append(bound, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &Handler{
		inner:  h.inner.WithAttrs(attrs),
		buf:    h.buf,
		level:  h.level,
		attrs:  bound,
		groups: h.groups,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		inner:  h.inner.WithGroup(name),
		buf:    h.buf,
		level:  h.level,
		attrs:  h.attrs,
		groups: append(h.groups[:len(h.groups):len(h.groups)], name),
	}
}
