package ygggo_formsql

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all the metric instruments
type Metrics struct {
	submissionsTotal   metric.Int64Counter
	submissionDuration metric.Float64Histogram
	sessionsActive     metric.Int64UpDownCounter
	templateCacheHits  metric.Int64Counter
}

// EnableMetrics enables or disables metrics collection for this submitter
func (s *Submitter) EnableMetrics(enabled bool) {
	if s == nil {
		return
	}
	s.metricsEnabled = enabled
	if enabled && s.metrics == nil {
		s.initMetrics()
	}
}

// SetMeterProvider sets a custom meter provider for metrics
func (s *Submitter) SetMeterProvider(provider metric.MeterProvider) {
	if s == nil {
		return
	}
	s.meterProvider = provider
	if s.metricsEnabled {
		s.initMetrics()
	}
}

func (s *Submitter) initMetrics() {
	var meter metric.Meter
	if s.meterProvider != nil {
		meter = s.meterProvider.Meter(instrumentationName)
	} else {
		meter = otel.Meter(instrumentationName)
	}

	s.metrics = &Metrics{}
	s.metrics.submissionsTotal, _ = meter.Int64Counter(
		"ygggo_formsql_submissions_total",
		metric.WithDescription("Total number of form submissions"),
	)
	s.metrics.submissionDuration, _ = meter.Float64Histogram(
		"ygggo_formsql_submission_duration_seconds",
		metric.WithDescription("Duration of form submissions from synthesis to execution"),
		metric.WithUnit("s"),
	)
	s.metrics.sessionsActive, _ = meter.Int64UpDownCounter(
		"ygggo_formsql_connections_active",
		metric.WithDescription("Number of database connections held by submissions"),
	)
	s.metrics.templateCacheHits, _ = meter.Int64Counter(
		"ygggo_formsql_template_cache_hits_total",
		metric.WithDescription("Compiled templates served from the cache"),
	)
}

// recordSubmission records one finished submission
func (s *Submitter) recordSubmission(ctx context.Context, system, table string, duration time.Duration, err error) {
	if s == nil || !s.metricsEnabled || s.metrics == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case IsRequestError(err):
		status = "rejected"
	default:
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("db.system", system),
		attribute.String("table", table),
		attribute.String("status", status),
	)
	s.metrics.submissionsTotal.Add(ctx, 1, attrs)
	s.metrics.submissionDuration.Record(ctx, duration.Seconds(), attrs)
}

func (s *Submitter) recordSessionAcquired(ctx context.Context) {
	if s == nil || !s.metricsEnabled || s.metrics == nil {
		return
	}
	s.metrics.sessionsActive.Add(ctx, 1)
}

func (s *Submitter) recordSessionReleased(ctx context.Context) {
	if s == nil || !s.metricsEnabled || s.metrics == nil {
		return
	}
	s.metrics.sessionsActive.Add(ctx, -1)
}

func (s *Submitter) recordTemplateCacheHit(ctx context.Context) {
	if s == nil || !s.metricsEnabled || s.metrics == nil {
		return
	}
	s.metrics.templateCacheHits.Add(ctx, 1)
}
