package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/textileplan/backend/internal/infrastructure/config"
)

type memoryLogExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) exported() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	base := zaptest.NewLogger(t)

	lp, err := NewLoggerProvider(ctx, LogsConfig{Enabled: false, ServiceName: "test-service"}, base)
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.Same(t, base, lp.Bridge(base))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestLogsFromAppConfig(t *testing.T) {
	cfg := config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		ServiceName:       "planctl",
		LogsEnabled:       true,
	}
	assert.True(t, LogsFromAppConfig(cfg).Enabled)

	cfg.LogsEnabled = false
	assert.False(t, LogsFromAppConfig(cfg).Enabled)
}

func TestLoggerProvider_Bridge(t *testing.T) {
	ctx := context.Background()
	exporter := &memoryLogExporter{}
	lp := &LoggerProvider{
		provider: sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter))),
		logger:   zap.NewNop(),
		config:   LogsConfig{Enabled: true, ServiceName: "test-service"},
	}
	t.Cleanup(func() { _ = lp.Shutdown(ctx) })

	core, local := observer.New(zapcore.InfoLevel)
	log := lp.Bridge(zap.New(core))

	log.Debug("below the base level")
	log.Info("import finished", zap.Int("imported", 3))
	log.With(zap.String("entity", "providers")).Warn("row skipped")

	assert.Equal(t, 2, local.Len())
	assert.Equal(t, []string{"import finished", "row skipped"}, exporter.exported())
}
