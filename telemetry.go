package ygggo_formsql

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName    = "github.com/yggai/ygggo_formsql"
	instrumentationVersion = "v0.1.0"
)

// EnableTelemetry enables or disables OpenTelemetry tracing for this submitter
func (s *Submitter) EnableTelemetry(enabled bool) {
	if s == nil {
		return
	}
	s.telemetryEnabled = enabled
}

// SetTracerProvider sets the provider spans are created from. Without one the
// global provider is used.
func (s *Submitter) SetTracerProvider(provider trace.TracerProvider) {
	if s == nil {
		return
	}
	s.tracerProvider = provider
}

func (s *Submitter) tracer() trace.Tracer {
	provider := s.tracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return provider.Tracer(instrumentationName, trace.WithInstrumentationVersion(instrumentationVersion))
}

// startSpan creates a span named ygggo_formsql.<operation> carrying the
// destination table.
func (s *Submitter) startSpan(ctx context.Context, operation string, dest Destination) (context.Context, trace.Span) {
	if s == nil || !s.telemetryEnabled {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := s.tracer().Start(ctx, "ygggo_formsql."+operation, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.operation", "insert"),
		attribute.String("db.sql.table", dest.Table),
	)
	return ctx, span
}

// annotateSpan adds attributes known only after synthesis or resolution.
func (s *Submitter) annotateSpan(span trace.Span, attrs ...attribute.KeyValue) {
	if s == nil || !s.telemetryEnabled {
		return
	}
	span.SetAttributes(attrs...)
}

// finishSpan completes a span with error handling
func (s *Submitter) finishSpan(span trace.Span, err error) {
	if s == nil || !s.telemetryEnabled {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Shorten(err.Error()))
		if class := Classify(err); class != ErrClassUnknown {
			span.SetAttributes(attribute.String("error.class", class.String()))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
