package ygggo_formsql

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Submission is one form post: the schema describing the form, where to store
// it and the submitted values.
type Submission struct {
	Schema      FormSchema     `json:"schema"`
	Destination Destination    `json:"destination"`
	Data        map[string]any `json:"data"`
}

// Submitter stores submissions as single-row INSERTs.
//
// Each Submit acquires its own connection and prepared statement and releases
// both before returning. Only the connector pools in Destinations and the
// compile cache are shared between calls.
type Submitter struct {
	dest   *Destinations
	logger *slog.Logger
	cache  *templateCache

	slowThreshold time.Duration

	telemetryEnabled bool
	tracerProvider   trace.TracerProvider

	metricsEnabled bool
	meterProvider  metric.MeterProvider
	metrics        *Metrics
}

// NewSubmitter creates a submitter writing through dest.
func NewSubmitter(dest *Destinations, logger *slog.Logger) *Submitter {
	if dest == nil {
		dest = NewDestinations(nil, OpenOptions{}, logger)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Submitter{dest: dest, logger: logger}
}

// Destinations returns the destination set the submitter writes through.
func (s *Submitter) Destinations() *Destinations { return s.dest }

// SetSlowQueryThreshold sets the duration above which a successful submission
// is logged at warn level. Zero disables the check.
func (s *Submitter) SetSlowQueryThreshold(d time.Duration) {
	if s == nil {
		return
	}
	s.slowThreshold = d
}

// EnableTemplateCache memoizes compiled templates, keeping at most capacity of
// them. A capacity of zero disables the cache.
func (s *Submitter) EnableTemplateCache(capacity int) error {
	if s == nil {
		return nil
	}
	c, err := newTemplateCache(capacity)
	if err != nil {
		return err
	}
	s.cache = c
	return nil
}

// TemplateCacheStats returns the compile cache counters.
func (s *Submitter) TemplateCacheStats() TemplateCacheStats {
	hits, misses, size := s.cache.stats()
	return TemplateCacheStats{Hits: hits, Misses: misses, Size: size}
}

// Submit synthesizes the INSERT for sub, compiles it, and executes it on a
// connection of the submission's destination.
//
// The steps run in order: synthesize, compile, acquire, prepare, bind, execute.
// A submission whose values cannot be bound is never executed. Nothing is retried.
// The full error is logged here; callers show Shorten(err.Error()) to clients.
func (s *Submitter) Submit(ctx context.Context, sub Submission) (err error) {
	start := time.Now()
	rec := submissionRecord{
		id:          uuid.NewString(),
		destination: sub.Destination.URL,
		table:       sub.Destination.Table,
	}
	system := "unknown"

	ctx, span := s.startSpan(ctx, "submit", sub.Destination)
	s.annotateSpan(span, attribute.String("ygggo_formsql.submission_id", rec.id))
	defer func() {
		rec.duration = time.Since(start)
		s.finishSpan(span, err)
		s.recordSubmission(ctx, system, sub.Destination.Table, rec.duration, err)
		s.logSubmission(ctx, rec, err)
	}()

	template, err := Synthesize(sub.Schema, sub.Destination, sub.Data)
	if err != nil {
		return err
	}
	cs, hit := s.cache.getOrCompile(template)
	if hit {
		s.recordTemplateCacheHit(ctx)
	}
	rec.template = template
	rec.placeholders = len(cs.Placeholders)
	s.annotateSpan(span, attribute.String("db.statement", cs.Query))

	conn, err := s.dest.Connector(ctx, sub.Destination.URL)
	if err != nil {
		var unsupported *UnsupportedDestinationError
		if errors.As(err, &unsupported) {
			return err
		}
		return &StatementExecutionError{Query: cs.Query, Err: err}
	}
	system = conn.System()
	s.annotateSpan(span, attribute.String("db.system", system))

	return s.execute(ctx, conn, cs, sub)
}

// execute owns the connection and statement of one submission and releases
// them on every path.
func (s *Submitter) execute(ctx context.Context, conn Connector, cs CompiledStatement, sub Submission) (err error) {
	sess, err := conn.Acquire(ctx)
	if err != nil {
		return &StatementExecutionError{Query: cs.Query, Err: err}
	}
	s.recordSessionAcquired(ctx)
	defer func() {
		_ = sess.Close()
		s.recordSessionReleased(ctx)
	}()

	stmt, err := sess.Prepare(ctx, cs.Query)
	if err != nil {
		return &StatementExecutionError{Query: cs.Query, Err: err}
	}
	defer stmt.Close()

	bound, err := Bind(stmt, cs, sub.Data)
	if err != nil {
		return err
	}

	execCtx, span := s.startSpan(ctx, "exec", sub.Destination)
	s.annotateSpan(span,
		attribute.String("db.system", conn.System()),
		attribute.String("db.statement", bound.Query()),
		attribute.Int("db.arg_count", len(cs.Placeholders)),
	)
	_, err = bound.Exec(execCtx)
	s.finishSpan(span, err)
	return err
}
