package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const handlerSpanPrefix = "httpapi.Handler."

var handlerTracer = otel.Tracer("github.com/riskibarqy/global-standings/internal/interfaces/httpapi")

// startSpan opens a child span for handler entry points inside a traced request. Middleware
// and response helpers get a no-op span, as do requests the tracing filter skipped.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanContextFromContext(ctx).IsValid() || !isHandlerSpan(name) {
		return ctx, noop.Span{}
	}

	var opts []trace.SpanStartOption
	if route := routeFromContext(ctx); route != "" {
		opts = append(opts, trace.WithAttributes(attribute.String("http.route", route)))
	}
	return handlerTracer.Start(ctx, name, opts...)
}

func isHandlerSpan(name string) bool {
	return strings.HasPrefix(name, handlerSpanPrefix)
}
