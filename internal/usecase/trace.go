package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var rankingTracer = otel.Tracer("github.com/riskibarqy/global-standings/internal/usecase")

// startUsecaseSpan only continues an existing trace, so warmup runs at startup and calls
// from untraced routes produce no orphan spans.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, noop.Span{}
	}
	return rankingTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
