package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VOXEL_CONFIG", "")
	t.Setenv("VOXEL_SEED", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("VOXEL_SEED", "")
	path := writeConfig(t, `
world:
  seed: 42
  render_distance: 100
  generator: flat
scheduler:
  workers: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.World.Seed)
	assert.Equal(t, MaxRenderDistance, cfg.World.RenderDistance, "дальность должна быть ограничена")
	assert.Equal(t, GeneratorFlat, cfg.World.Generator)
	assert.Equal(t, "simplex", cfg.World.NoiseBackend, "незаданные поля берутся из дефолтов")
	assert.Equal(t, 2, cfg.Scheduler.Workers)
	assert.Equal(t, 4, cfg.Scheduler.MaxWorkers)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, "world:\n  noise_backend: perlin\n")
	t.Setenv("VOXEL_CONFIG", path)
	t.Setenv("VOXEL_SEED", "-7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "perlin", cfg.World.NoiseBackend)
	assert.Equal(t, int64(-7), cfg.World.Seed)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("VOXEL_SEED", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "world: [oops"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "world:\n  generator: islands\n"))
	assert.Error(t, err)

	t.Setenv("VOXEL_SEED", "abc")
	_, err = Load("")
	assert.Error(t, err)
}

func TestClampRenderDistance(t *testing.T) {
	assert.Equal(t, 2, ClampRenderDistance(0))
	assert.Equal(t, 12, ClampRenderDistance(12))
	assert.Equal(t, 32, ClampRenderDistance(64))
}

func TestMetricsPortFallback(t *testing.T) {
	m := MetricsConfig{}
	t.Setenv("VOXEL_METRICS_PORT", "")
	assert.Equal(t, 2112, m.GetMetricsPort())

	t.Setenv("VOXEL_METRICS_PORT", "9100")
	assert.Equal(t, 9100, m.GetMetricsPort())

	m.Port = 9000
	assert.Equal(t, 9000, m.GetMetricsPort())
}

func TestLoadSampleConfig(t *testing.T) {
	t.Setenv("VOXEL_SEED", "")

	cfg, err := Load(filepath.Join("..", "..", "configs", "voxeld.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GeneratorNoise, cfg.World.Generator)
	assert.Equal(t, 8, cfg.World.RenderDistance)
	assert.Equal(t, 2112, cfg.Metrics.GetMetricsPort())
	assert.False(t, cfg.Telemetry.Enabled)
}
