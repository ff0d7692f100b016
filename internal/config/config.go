package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Допустимые значения world.generator
const (
	GeneratorNoise = "noise"
	GeneratorFlat  = "flat"
)

// Границы дальности прорисовки в чанках
const (
	MinRenderDistance = 2
	MaxRenderDistance = 32
)

// Config корневая структура конфигурации приложения.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type WorldConfig struct {
	Seed           int64  `yaml:"seed"`
	RenderDistance int    `yaml:"render_distance"`
	Generator      string `yaml:"generator"`
	NoiseBackend   string `yaml:"noise_backend"`
	FlatHeight     int    `yaml:"flat_height"`
}

type SchedulerConfig struct {
	Workers       int `yaml:"workers"` // 0 - по числу ядер
	MaxWorkers    int `yaml:"max_workers"`
	ResultsBuffer int `yaml:"results_buffer"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:           1337,
			RenderDistance: 8,
			Generator:      GeneratorNoise,
			NoiseBackend:   "simplex",
			FlatHeight:     64,
		},
		Scheduler: SchedulerConfig{
			MaxWorkers:    4,
			ResultsBuffer: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxelstream",
		},
	}
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (m *MetricsConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(m.Port, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// ClampRenderDistance ограничивает дальность прорисовки допустимым диапазоном
func ClampRenderDistance(n int) int {
	if n < MinRenderDistance {
		return MinRenderDistance
	}
	if n > MaxRenderDistance {
		return MaxRenderDistance
	}
	return n
}

// Validate проверяет значения и нормализует дальность прорисовки
func (c *Config) Validate() error {
	switch c.World.Generator {
	case GeneratorNoise, GeneratorFlat:
	default:
		return fmt.Errorf("world.generator: неизвестный генератор %q", c.World.Generator)
	}
	switch c.World.NoiseBackend {
	case "simplex", "perlin":
	default:
		return fmt.Errorf("world.noise_backend: неизвестная реализация %q", c.World.NoiseBackend)
	}
	if c.World.FlatHeight < 1 || c.World.FlatHeight > 250 {
		return fmt.Errorf("world.flat_height вне диапазона [1, 250]: %d", c.World.FlatHeight)
	}
	if c.Scheduler.Workers < 0 {
		return fmt.Errorf("scheduler.workers не может быть отрицательным: %d", c.Scheduler.Workers)
	}
	if c.Scheduler.MaxWorkers < 1 {
		return fmt.Errorf("scheduler.max_workers должен быть положительным: %d", c.Scheduler.MaxWorkers)
	}
	if c.Scheduler.ResultsBuffer < 0 {
		return fmt.Errorf("scheduler.results_buffer не может быть отрицательным: %d", c.Scheduler.ResultsBuffer)
	}
	c.World.RenderDistance = ClampRenderDistance(c.World.RenderDistance)
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG; без файла возвращает дефолты.
// VOXEL_SEED переопределяет сид мира.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
		}
	}

	if envSeed := os.Getenv("VOXEL_SEED"); envSeed != "" {
		seed, err := strconv.ParseInt(envSeed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("VOXEL_SEED: %w", err)
		}
		cfg.World.Seed = seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
