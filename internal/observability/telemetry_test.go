package observability

import (
	"context"
	"testing"

	"github.com/annel0/voxelstream/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetryDisabled(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: false}, "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTelemetryEnabled(t *testing.T) {
	// Экспортер подключается лениво, поэтому инициализация не требует коллектора
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:1")

	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: true, ServiceName: "voxel-test"}, "id-1")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	_ = shutdown(context.Background())
}
