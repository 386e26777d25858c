package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const handlerSpanPrefix = "httpapi.Handler."

var apiTracer = otel.Tracer("player-valuation/internal/interfaces/httpapi")
var noopSpan = trace.SpanFromContext(context.Background())

// startSpan opens a child span for valuation handlers only. Helpers and
// untraced routes such as /healthz get a noop span.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, noopSpan
	}
	operation, ok := handlerOperation(name)
	if !ok {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("valuation.operation", operation),
	))
}

// handlerOperation returns the handler name without its span prefix.
func handlerOperation(name string) (string, bool) {
	operation, ok := strings.CutPrefix(name, handlerSpanPrefix)
	if !ok || operation == "" {
		return "", false
	}
	return operation, true
}
