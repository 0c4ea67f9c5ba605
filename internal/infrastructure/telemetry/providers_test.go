package telemetry

import (
	"context"
	"testing"

	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	// Signals stay off unless telemetry as a whole is on
	cfg := config.TelemetryConfig{LogsEnabled: true, MetricsEnabled: true, ServiceName: "crm"}

	lp, err := NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Same(t, logger, lp.Bridge(logger, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("crm"))
	assert.NoError(t, mp.Shutdown(ctx))

	p, err := NewProfiler(cfg, logger)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	_, err := NewProfiler(config.TelemetryConfig{ProfilingEnabled: true}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestLevelCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(&levelCore{Core: inner, level: zapcore.WarnLevel}).With(zap.String("module", "crm"))

	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept too")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, "crm", logs.All()[0].ContextMap()["module"])
}
