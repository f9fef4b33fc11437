package ygggo_formsql

import (
	"context"
	"log/slog"
)

// Version returns the current library version.
//
// During development, it returns "v0.0.0-dev".
func Version() string { return "v0.0.0-dev" }

// New builds a Submitter from cfg and eagerly opens cfg.Destinations. On error
// every destination already opened is closed again.
func New(ctx context.Context, cfg Config, registry *Registry, logger *slog.Logger) (*Submitter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dest := NewDestinations(registry, cfg.OpenOptions(), logger)
	s := NewSubmitter(dest, logger)
	s.SetSlowQueryThreshold(cfg.SlowQueryThreshold)
	s.EnableTelemetry(cfg.Telemetry.Enabled)
	s.EnableMetrics(cfg.Metrics.Enabled)
	if err := s.EnableTemplateCache(cfg.TemplateCacheSize); err != nil {
		return nil, err
	}
	if err := dest.Open(ctx, cfg.Destinations...); err != nil {
		_ = dest.Close()
		return nil, err
	}
	return s, nil
}
