package ygggo_formsql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// NewLogger builds the slog logger described by cfg, writing to w.
func NewLogger(cfg LoggingConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", cfg.Format)
}

// SetLogger sets the logger used for submission records.
func (s *Submitter) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s.logger = logger
}

type submissionRecord struct {
	id           string
	destination  string
	table        string
	template     string
	placeholders int
	duration     time.Duration
}

// logSubmission writes one record per submission. Values are never logged,
// only the template they were bound to.
func (s *Submitter) logSubmission(ctx context.Context, rec submissionRecord, err error) {
	if s == nil || s.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("submission_id", rec.id),
		slog.String("destination", redactURL(rec.destination)),
		slog.String("table", rec.table),
		slog.Float64("duration_ms", float64(rec.duration.Nanoseconds())/1e6),
	}
	if rec.template != "" {
		attrs = append(attrs,
			slog.String("template", rec.template),
			slog.Int("placeholder_count", rec.placeholders),
		)
	}

	if err != nil {
		attrs = append(attrs, slog.String("status", "error"), slog.String("error", err.Error()))
		attrs = append(attrs, driverErrorAttrs(err)...)
		if IsRequestError(err) {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "form submission rejected", attrs...)
			return
		}
		s.logger.LogAttrs(ctx, slog.LevelError, "form submission failed", attrs...)
		return
	}

	attrs = append(attrs, slog.String("status", "success"))
	if s.slowThreshold > 0 && rec.duration > s.slowThreshold {
		attrs = append(attrs, slog.Float64("threshold_ms", float64(s.slowThreshold.Nanoseconds())/1e6))
		s.logger.LogAttrs(ctx, slog.LevelWarn, "slow submission detected", attrs...)
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "form submission stored", attrs...)
}

func driverErrorAttrs(err error) []slog.Attr {
	var attrs []slog.Attr
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		attrs = append(attrs, slog.Int("error_code", int(mysqlErr.Number)))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		attrs = append(attrs, slog.String("sqlstate", pgErr.Code))
	}
	if class := Classify(err); class != ErrClassUnknown {
		attrs = append(attrs, slog.String("error_class", class.String()))
	}
	return attrs
}

// logConnectorEvent logs opening and closing of destination pools.
func (d *Destinations) logConnectorEvent(ctx context.Context, event, system, rawURL string, duration time.Duration, err error) {
	if d == nil || d.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("event", event),
		slog.String("db.system", system),
		slog.String("destination", redactURL(rawURL)),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/1e6),
	}
	if err != nil {
		attrs = append(attrs, slog.String("status", "error"), slog.String("error", err.Error()))
		d.logger.LogAttrs(ctx, slog.LevelError, "destination connection event", attrs...)
		return
	}
	attrs = append(attrs, slog.String("status", "success"))
	d.logger.LogAttrs(ctx, slog.LevelDebug, "destination connection event", attrs...)
}
