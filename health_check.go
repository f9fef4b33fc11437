package ygggo_formsql

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// HealthStatus represents the health of every opened destination
type HealthStatus struct {
	Healthy      bool                `json:"healthy"`
	LastChecked  time.Time           `json:"last_checked"`
	ResponseTime time.Duration       `json:"response_time"`
	Destinations []DestinationHealth `json:"destinations"`
}

// DestinationHealth is the result for one destination pool.
type DestinationHealth struct {
	Destination       string        `json:"destination"`
	System            string        `json:"system"`
	Healthy           bool          `json:"healthy"`
	ResponseTime      time.Duration `json:"response_time"`
	ConnectionsActive int           `json:"connections_active"`
	ConnectionsIdle   int           `json:"connections_idle"`
	ConnectionsMax    int           `json:"connections_max"`
	Errors            []HealthError `json:"errors,omitempty"`
}

// HealthError represents a health check error
type HealthError struct {
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Recoverable bool      `json:"recoverable"`
}

// HealthCheckConfig configures health check behavior
type HealthCheckConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	TestQuery    string        `yaml:"test_query"` // empty skips the query check
	Concurrency  int           `yaml:"concurrency"`
}

// DefaultHealthCheckConfig returns default health check configuration
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		Timeout:      5 * time.Second,
		Retries:      2,
		RetryBackoff: 200 * time.Millisecond,
		TestQuery:    "SELECT 1",
		Concurrency:  8,
	}
}

// HealthCheck pings every opened destination concurrently. Destinations that
// were never used are not opened by a health check.
func (d *Destinations) HealthCheck(ctx context.Context, config HealthCheckConfig) *HealthStatus {
	start := time.Now()
	open := d.snapshot()
	status := &HealthStatus{
		Healthy:      true,
		LastChecked:  start,
		Destinations: make([]DestinationHealth, len(open)),
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	var g errgroup.Group
	if config.Concurrency > 0 {
		g.SetLimit(config.Concurrency)
	}
	for i, oc := range open {
		g.Go(func() error {
			status.Destinations[i] = checkDestination(ctx, oc.url, oc.c, config)
			return nil
		})
	}
	_ = g.Wait()

	for _, dh := range status.Destinations {
		if !dh.Healthy {
			status.Healthy = false
		}
	}
	status.ResponseTime = time.Since(start)
	return status
}

func checkDestination(ctx context.Context, rawURL string, c Connector, config HealthCheckConfig) DestinationHealth {
	start := time.Now()
	dh := DestinationHealth{Destination: redactURL(rawURL), System: c.System()}

	if err := pingWithRetry(ctx, c, config); err != nil {
		dh.Errors = append(dh.Errors, HealthError{
			Type:        "connectivity",
			Message:     fmt.Sprintf("Ping failed: %v", err),
			Timestamp:   time.Now(),
			Recoverable: Classify(err) != ErrClassReadonly,
		})
	} else if config.TestQuery != "" {
		var result any
		if err := c.DB().QueryRowContext(ctx, config.TestQuery).Scan(&result); err != nil {
			dh.Errors = append(dh.Errors, HealthError{
				Type:        "query_execution",
				Message:     fmt.Sprintf("Query execution failed: %v", err),
				Timestamp:   time.Now(),
				Recoverable: true,
			})
		}
	}

	stats := c.Stats()
	dh.ConnectionsActive = stats.InUse
	dh.ConnectionsIdle = stats.Idle
	dh.ConnectionsMax = stats.MaxOpenConnections
	dh.ResponseTime = time.Since(start)
	dh.Healthy = len(dh.Errors) == 0
	return dh
}

func pingWithRetry(ctx context.Context, c Connector, config HealthCheckConfig) error {
	retries := config.Retries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(config.RetryBackoff), uint64(retries)),
		ctx,
	)
	return backoff.Retry(func() error { return c.Ping(ctx) }, b)
}
