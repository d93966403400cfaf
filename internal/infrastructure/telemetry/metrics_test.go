package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"

	"github.com/textileplan/backend/internal/infrastructure/config"
	"github.com/textileplan/backend/internal/infrastructure/telemetry"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    time.Minute,
		ServiceName:       "test-service",
	}

	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.Equal(t, "test-service", mp.GetConfig().ServiceName)
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestMetricsFromAppConfig(t *testing.T) {
	cfg := config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		ServiceName:       "planctl",
		MetricsEnabled:    true,
		MetricsInterval:   30 * time.Second,
	}
	got := telemetry.MetricsFromAppConfig(cfg)
	assert.True(t, got.Enabled)
	assert.Equal(t, 30*time.Second, got.ExportInterval)
	assert.Equal(t, "otel:4317", got.CollectorEndpoint)

	cfg.Enabled = false
	assert.False(t, telemetry.MetricsFromAppConfig(cfg).Enabled)
}

func TestPlanningMetrics(t *testing.T) {
	ctx := context.Background()

	_, err := telemetry.NewPlanningMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	m, err := telemetry.NewPlanningMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.RecordImport(ctx, "providers", false, 3, 0, 1)
	m.RecordRecalculation(ctx, "bom_template", false, true)
	m.RecordRecalculation(ctx, "bom_template", false, false)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	points := map[string]int{}
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok, metric.Name)
			assert.True(t, sum.IsMonotonic)
			points[metric.Name] = len(sum.DataPoints)
			for _, dp := range sum.DataPoints {
				totals[metric.Name] += dp.Value
			}
		}
	}

	// the zero skipped count is not recorded
	assert.Equal(t, 2, points[telemetry.MetricImportRows])
	assert.EqualValues(t, 4, totals[telemetry.MetricImportRows])
	assert.Equal(t, 2, points[telemetry.MetricRecalculations])
	assert.EqualValues(t, 2, totals[telemetry.MetricRecalculations])
}

func TestMetrics_Global(t *testing.T) {
	m := telemetry.Metrics()
	require.NotNil(t, m)
	assert.Same(t, m, telemetry.Metrics())
	m.RecordRecalculation(context.Background(), "production_budget", true, true)
}
