package ygggo_formsql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version())
}

func TestNew_OpensConfiguredDestinations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Destinations = []string{"sqlite://:memory:"}
	cfg.Metrics.Enabled = true

	s, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer s.Destinations().Close()

	assert.Len(t, s.Destinations().snapshot(), 1)
	assert.Equal(t, cfg.SlowQueryThreshold, s.slowThreshold)
	assert.NotNil(t, s.cache)
	assert.NotNil(t, s.metrics)
}

func TestNew_FailsOnUnsupportedDestination(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Destinations = []string{"sqlite://:memory:", "oracle://db/x"}

	_, err := New(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported destination")
}
