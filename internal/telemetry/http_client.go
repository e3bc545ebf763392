package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewInstrumentedTransport wraps base (http.DefaultTransport when nil) so every
// outbound request becomes a client span and carries the trace context.
func NewInstrumentedTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return otelhttp.NewTransport(base,
		otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
	)
}

// ExternalServiceCallAttrs holds attributes for partner platform calls
type ExternalServiceCallAttrs struct {
	Service                 string // "migu.center", "migu.pay"
	Operation               string
	ResourceID              string
	CircuitBreakerTriggered bool
}

// TraceExternalCall opens a span for one logical partner call, which may cover
// several HTTP requests.
func TraceExternalCall(ctx context.Context, attrs ExternalServiceCallAttrs) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("external-api").Start(ctx, attrs.Service+"."+attrs.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("external.service", attrs.Service),
			attribute.String("external.operation", attrs.Operation),
		),
	)
	if attrs.ResourceID != "" {
		span.SetAttributes(attribute.String("external.resource_id", attrs.ResourceID))
	}
	return ctx, span
}

// RecordExternalCallError records error details in a span
func RecordExternalCallError(span trace.Span, err error, statusCode int, breakerOpen bool) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
		if statusCode >= 500 || statusCode == 408 || statusCode == 429 {
			span.SetAttributes(attribute.Bool("external.error.retryable", true))
		}
	}
	if breakerOpen {
		span.SetAttributes(attribute.Bool("external.circuit_breaker_triggered", true))
	}
}

// RecordExternalCallSuccess marks a span as successful
func RecordExternalCallSuccess(span trace.Span, statusCode int) {
	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	span.SetStatus(codes.Ok, "")
}
