package main

import (
	"context"
	"testing"

	"github.com/gartstein/jobboard/internal/jobboard/cache"
	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "debug", Format: "json"}}

	zl := initLogger(cfg)
	require.NotNil(t, zl)
	assert.True(t, zl.Core().Enabled(zapcore.DebugLevel))
}

func TestBackendsFallBackWithoutConfiguration(t *testing.T) {
	cfg := &config.Config{}
	zl := zap.NewNop()

	producer, closeProducer, err := initProducer(cfg, zl)
	require.NoError(t, err)
	assert.IsType(t, events.Discard{}, producer)
	closeProducer()

	lookupCache, closeCache := initCache(context.Background(), cfg, zl)
	assert.IsType(t, cache.Nop{}, lookupCache)
	closeCache()
}
