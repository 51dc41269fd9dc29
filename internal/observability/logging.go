// Package observability carries request-scoped logging context and a slog
// handler that renders it on every record logged with that context.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/txbridge/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	RequestID string
	Flow      string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	lc := extractLogContext(ctx)
	lc.RequestID = requestID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithFlow adds the invocation flow (submit or complete) to the context.
func WithFlow(ctx context.Context, flow string) context.Context {
	lc := extractLogContext(ctx)
	lc.Flow = flow
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	var attrs []slog.Attr
	if lc.RequestID != "" {
		attrs = append(attrs, logfields.RequestID(lc.RequestID))
	}
	if lc.Flow != "" {
		attrs = append(attrs, slog.String("flow", lc.Flow))
	}
	return attrs
}

// ContextHandler decorates a handler with the LogContext of each record's context.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := getLogAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
