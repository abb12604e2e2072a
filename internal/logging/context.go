package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	workflowKey ctxKey = iota
	renderIDKey
	nodeIDKey
)

// WithWorkflow returns a context carrying the name of the workflow being drawn.
func WithWorkflow(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, workflowKey, name)
}

// WithRenderID returns a context carrying the id of one render pass.
func WithRenderID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, renderIDKey, id)
}

// WithNodeID returns a context carrying the node currently being drawn.
func WithNodeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, nodeIDKey, id)
}

// Workflow extracts the workflow name from the context, or "" if absent.
func Workflow(ctx context.Context) string {
	v, _ := ctx.Value(workflowKey).(string)
	return v
}

// RenderID extracts the render id from the context, or "" if absent.
func RenderID(ctx context.Context) string {
	v, _ := ctx.Value(renderIDKey).(string)
	return v
}

// NodeID extracts the node id from the context, or "" if absent.
func NodeID(ctx context.Context) string {
	v, _ := ctx.Value(nodeIDKey).(string)
	return v
}

// correlationAttrs returns the non-empty correlation ids on ctx.
func correlationAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if v := Workflow(ctx); v != "" {
		attrs = append(attrs, slog.String("workflow", v))
	}
	if v := RenderID(ctx); v != "" {
		attrs = append(attrs, slog.String("render_id", v))
	}
	if v := NodeID(ctx); v != "" {
		attrs = append(attrs, slog.String("node_id", v))
	}
	return attrs
}

// LogWith returns a logger enriched with correlation ids from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	for _, a := range correlationAttrs(ctx) {
		logger = logger.With(a)
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, injecting correlation ids from the
// context into every record. Use with slog.New(NewCorrelationHandler(inner))
// so that logger.WarnContext(ctx, ...) carries them automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with correlation id injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(correlationAttrs(ctx)...)
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
