package world

import (
	"fmt"
	"sync"

	"github.com/annel0/voxelstream/internal/config"
	"github.com/annel0/voxelstream/internal/logging"
	"github.com/annel0/voxelstream/internal/vec"
	"github.com/annel0/voxelstream/internal/world/block"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// World контекст мира: генератор, планировщик чанков и точка обзора.
// Все зависимости передаются явно, глобального состояния нет.
type World struct {
	InstanceID uuid.UUID

	cfg       config.Config
	generator Generator
	manager   *ChunkManager
	log       *logging.Logger

	mu       sync.Mutex
	position mgl32.Vec3

	closeOnce sync.Once
}

// Option дополнительная настройка мира
type Option func(*worldOptions)

type worldOptions struct {
	generator  Generator
	registerer prometheus.Registerer
	tracer     trace.Tracer
}

// WithGenerator подменяет генератор из конфигурации
func WithGenerator(g Generator) Option {
	return func(o *worldOptions) { o.generator = g }
}

// WithRegisterer регистрирует метрики планировщика в reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *worldOptions) { o.registerer = reg }
}

// WithTracer задаёт трассировщик задач
func WithTracer(t trace.Tracer) Option {
	return func(o *worldOptions) { o.tracer = t }
}

// NewWorld создаёт мир и запускает воркеры планировщика
func NewWorld(cfg config.Config, opts ...Option) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("конфигурация мира: %w", err)
	}

	var o worldOptions
	for _, opt := range opts {
		opt(&o)
	}

	gen := o.generator
	if gen == nil {
		var err error
		if gen, err = NewGenerator(cfg.World); err != nil {
			return nil, fmt.Errorf("создание генератора: %w", err)
		}
	}

	w := &World{
		InstanceID: uuid.New(),
		cfg:        cfg,
		generator:  gen,
		log:        logging.GetWorldLogger(),
	}
	w.manager = NewChunkManager(gen, ManagerOptions{
		Workers:        cfg.Scheduler.Workers,
		MaxWorkers:     cfg.Scheduler.MaxWorkers,
		RenderDistance: cfg.World.RenderDistance,
		ResultsBuffer:  cfg.Scheduler.ResultsBuffer,
		Registerer:     o.registerer,
		Tracer:         o.tracer,
	})

	w.log.Info("🌍 Мир %s создан: сид=%d, генератор=%s", w.InstanceID, cfg.World.Seed, cfg.World.Generator)
	return w, nil
}

// Manager возвращает планировщик чанков
func (w *World) Manager() *ChunkManager { return w.manager }

// Update вызывается каждый кадр с позицией точки обзора
func (w *World) Update(position mgl32.Vec3) {
	w.mu.Lock()
	w.position = position
	w.mu.Unlock()

	w.manager.SetCenterChunk(vec.ChunkIDFromPosition(position))
}

// Position возвращает последнюю позицию точки обзора
func (w *World) Position() mgl32.Vec3 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.position
}

// SetRenderDistance меняет дальность прорисовки
func (w *World) SetRenderDistance(n int) {
	w.manager.SetRenderDistance(n)
}

// GetChunkAt возвращает загруженный чанк по глобальной позиции или nil
func (w *World) GetChunkAt(global vec.Vec3) *Chunk {
	return w.manager.GetChunkAt(global)
}

// GetBlockAt возвращает блок по глобальной позиции. Вне мира по Y, в
// незагруженном или ещё не сгенерированном чанке возвращается воздух.
func (w *World) GetBlockAt(global vec.Vec3) block.BlockID {
	if global.Y < 0 || global.Y >= vec.ChunkSizeY {
		return block.AirBlockID
	}
	c := w.manager.GetChunkAt(global)
	if c == nil || c.Stage() < StageGenerationComplete {
		return block.AirBlockID
	}
	return c.BlockAtGlobal(global)
}

// ChunksInRenderArea возвращает чанки области прорисовки
func (w *World) ChunksInRenderArea() []*Chunk {
	return w.manager.GetChunksInRenderArea()
}

// Results канал уведомлений о готовых мешах
func (w *World) Results() <-chan MeshEvent {
	return w.manager.Results()
}

// Close останавливает планировщик
func (w *World) Close() {
	w.closeOnce.Do(func() {
		w.manager.Close()
		w.log.Info("🌍 Мир %s остановлен, загружено чанков: %d", w.InstanceID, w.manager.LoadedChunkCount())
	})
}
