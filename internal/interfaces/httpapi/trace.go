package httpapi

import (
	"context"
	"strings"

	"github.com/riskibarqy/ipl-snapshot/internal/usecase"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var apiTracer = otel.Tracer("ipl-snapshot/internal/interfaces/httpapi")
var noopSpan = trace.SpanFromContext(context.Background())

// startSpan only opens handler spans, and only under the otelhttp server
// span, so filtered routes and helpers stay out of traces.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() || !shouldCreateHTTPAPISpan(name) {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name)
}

func shouldCreateHTTPAPISpan(name string) bool {
	return strings.HasPrefix(name, "httpapi.Handler.")
}

func snapshotAttributes(result usecase.SnapshotResult) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("snapshot.cache", string(result.CacheStatus)),
		attribute.String("snapshot.sources", result.Provenance.String()),
		attribute.Bool("snapshot.degraded", result.Provenance.UsedStatic()),
	}
}
