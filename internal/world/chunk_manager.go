package world

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/annel0/voxelstream/internal/config"
	"github.com/annel0/voxelstream/internal/logging"
	"github.com/annel0/voxelstream/internal/vec"
	"github.com/gammazero/deque"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Запас колец окна загрузки сверх дальности прорисовки
const loadingBorder = 3

// Результат обработки задачи
const (
	outcomeCompleted = "completed"
	outcomeRequeued  = "requeued"
	outcomeAbandoned = "abandoned"
)

// MeshEvent уведомление о построенном меше
type MeshEvent struct {
	ID      vec.ChunkID
	Version uint32
}

type job struct {
	chunk *Chunk
	typ   JobType
}

// ManagerOptions настройки планировщика
type ManagerOptions struct {
	Workers        int // 0 - по числу логических ядер
	MaxWorkers     int
	RenderDistance int
	ResultsBuffer  int
	Registerer     prometheus.Registerer
	Tracer         trace.Tracer
}

// ChunkManager владеет чанками окна и пулом воркеров, которые продвигают
// чанки по стадиям. Каждая стадия - одна задача; задача либо выполняет работу
// после CAS в InProgress, либо ставит в очередь недостающие предпосылки и себя.
type ChunkManager struct {
	gen     Generator
	metrics *Metrics
	tracer  trace.Tracer
	log     *logging.Logger

	mu             sync.Mutex
	chunks         map[vec.ChunkID]*Chunk
	center         vec.ChunkID
	centerSet      bool
	renderDistance int
	appliedRender  int

	queueMu sync.Mutex
	cond    *sync.Cond
	queue   deque.Deque[job]
	retire  bool

	results   chan MeshEvent
	workers   int
	group     errgroup.Group
	closeOnce sync.Once
}

// DefaultWorkerCount возвращает clamp(логические ядра/2 - 1, 1, maxWorkers)
func DefaultWorkerCount(maxWorkers int) int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return min(max(n/2-1, 1), maxWorkers)
}

// NewChunkManager создаёт планировщик и запускает воркеры
func NewChunkManager(gen Generator, opts ManagerOptions) *ChunkManager {
	m := newChunkManager(gen, opts)
	for i := 0; i < m.workers; i++ {
		m.group.Go(m.worker)
	}
	m.log.Info("🧱 Планировщик чанков запущен: воркеров=%d, дальность=%d", m.workers, m.renderDistance)
	return m
}

func newChunkManager(gen Generator, opts ManagerOptions) *ChunkManager {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkerCount(opts.MaxWorkers)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/annel0/voxelstream/internal/world")
	}

	m := &ChunkManager{
		gen:            gen,
		metrics:        NewMetrics(opts.Registerer),
		tracer:         tracer,
		log:            logging.GetChunkLogger(),
		chunks:         make(map[vec.ChunkID]*Chunk),
		renderDistance: config.ClampRenderDistance(opts.RenderDistance),
		results:        make(chan MeshEvent, max(opts.ResultsBuffer, 0)),
		workers:        workers,
	}
	m.cond = sync.NewCond(&m.queueMu)
	return m
}

// WorkerCount возвращает число воркеров
func (m *ChunkManager) WorkerCount() int { return m.workers }

// Results канал уведомлений о готовых мешах; закрывается после Close
func (m *ChunkManager) Results() <-chan MeshEvent { return m.results }

// RenderDistance возвращает текущую дальность прорисовки
func (m *ChunkManager) RenderDistance() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderDistance
}

// SetRenderDistance меняет дальность прорисовки (в пределах [2, 32]);
// окно пересчитывается при следующем SetCenterChunk
func (m *ChunkManager) SetRenderDistance(n int) {
	m.mu.Lock()
	m.renderDistance = config.ClampRenderDistance(n)
	m.mu.Unlock()
}

// LoadedChunkCount возвращает количество загруженных чанков
func (m *ChunkManager) LoadedChunkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.chunks)
}

// GetChunk возвращает загруженный чанк по ID или nil
func (m *ChunkManager) GetChunk(id vec.ChunkID) *Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chunks[id]
}

// GetChunkAt возвращает загруженный чанк, содержащий глобальную позицию, или nil
func (m *ChunkManager) GetChunkAt(global vec.Vec3) *Chunk {
	return m.GetChunk(vec.ChunkIDFromGlobal(global))
}

// GetChunksInRenderArea возвращает чанки в пределах дальности прорисовки,
// от ближних к дальним
func (m *ChunkManager) GetChunksInRenderArea() []*Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.centerSet {
		return nil
	}
	return m.ringLocked(m.appliedRender)
}

// ringLocked собирает загруженные чанки на расстоянии не больше r от центра
func (m *ChunkManager) ringLocked(r int) []*Chunk {
	out := make([]*Chunk, 0, (2*r+1)*(2*r+1))
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			if c, ok := m.chunks[m.center.Add(dx, dz)]; ok {
				out = append(out, c)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ID.Distance(m.center) < out[j].ID.Distance(m.center)
	})
	return out
}

// SetCenterChunk сдвигает окно: создаёт недостающие чанки окна загрузки,
// связывает соседей и ставит меширование для области прорисовки.
func (m *ChunkManager) SetCenterChunk(id vec.ChunkID) {
	m.mu.Lock()
	if m.centerSet && m.center == id && m.appliedRender == m.renderDistance {
		m.mu.Unlock()
		return
	}
	m.center = id
	m.centerSet = true
	m.appliedRender = m.renderDistance

	r := m.appliedRender
	loadR := r + loadingBorder

	created := 0
	for dz := -loadR; dz <= loadR; dz++ {
		for dx := -loadR; dx <= loadR; dx++ {
			cid := id.Add(dx, dz)
			if _, ok := m.chunks[cid]; !ok {
				m.chunks[cid] = NewChunk(cid)
				created++
			}
		}
	}

	linked := 0
	linkR := loadR - 1
	for dz := -linkR; dz <= linkR; dz++ {
		for dx := -linkR; dx <= linkR; dx++ {
			if m.linkNeighboursLocked(m.chunks[id.Add(dx, dz)]) {
				linked++
			}
		}
	}

	render := m.ringLocked(r)
	loaded := len(m.chunks)

	var stages [stageCount]int
	for _, c := range m.chunks {
		stages[c.Stage()]++
	}
	m.mu.Unlock()

	m.metrics.loadedChunks.Set(float64(loaded))
	m.metrics.observeStages(stages)
	m.log.Debug("Центр окна %v: создано %d, связано %d, загружено %d", id, created, linked, loaded)

	for _, c := range render {
		if c.Stage() < StageMeshingInProgress {
			m.EnqueueDedupJob(c, JobMeshing)
		}
	}
}

// linkNeighboursLocked связывает 8 соседей чанка, если все они загружены
func (m *ChunkManager) linkNeighboursLocked(c *Chunk) bool {
	if c == nil || c.NeighboursSet() {
		return false
	}
	var n [neighbourCount]*Chunk
	for i, o := range neighbourOffsets {
		nb, ok := m.chunks[c.ID.Add(o[0], o[1])]
		if !ok {
			return false
		}
		n[i] = nb
	}
	return c.setNeighbours(n)
}

// EnqueueDedupJob ставит задачу в очередь, если такая же для чанка ещё не стоит.
// После Close ничего не делает.
func (m *ChunkManager) EnqueueDedupJob(c *Chunk, t JobType) bool {
	if !c.markEnqueued(t) {
		m.metrics.jobsDeduplicated.WithLabelValues(t.String()).Inc()
		return false
	}

	m.queueMu.Lock()
	if m.retire {
		m.queueMu.Unlock()
		c.clearEnqueued(t)
		return false
	}
	m.queue.PushBack(job{chunk: c, typ: t})
	depth := m.queue.Len()
	m.queueMu.Unlock()
	m.cond.Signal()

	m.metrics.jobsEnqueued.WithLabelValues(t.String()).Inc()
	m.metrics.queueDepth.Set(float64(depth))
	return true
}

// QueueLen возвращает число задач в очереди
func (m *ChunkManager) QueueLen() int {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	return m.queue.Len()
}

func (m *ChunkManager) worker() error {
	for {
		m.queueMu.Lock()
		for m.queue.Len() == 0 && !m.retire {
			m.cond.Wait()
		}
		if m.queue.Len() == 0 {
			m.queueMu.Unlock()
			return nil
		}
		j := m.queue.PopFront()
		depth := m.queue.Len()
		m.queueMu.Unlock()

		m.metrics.queueDepth.Set(float64(depth))
		j.chunk.clearEnqueued(j.typ)
		m.process(j)
	}
}

func (m *ChunkManager) process(j job) {
	start := time.Now()
	_, span := m.tracer.Start(context.Background(), "chunk."+j.typ.String(),
		trace.WithAttributes(
			attribute.Int("chunk.x", j.chunk.ID.X),
			attribute.Int("chunk.z", j.chunk.ID.Z),
			attribute.String("chunk.stage", j.chunk.Stage().String()),
		))

	outcome := m.runJob(j.chunk, j.typ)

	span.SetAttributes(attribute.String("job.outcome", outcome))
	span.End()

	m.metrics.jobsProcessed.WithLabelValues(j.typ.String(), outcome).Inc()
	if outcome == outcomeCompleted {
		m.metrics.jobDuration.WithLabelValues(j.typ.String()).Observe(time.Since(start).Seconds())
		m.log.Trace("Задача %s для чанка %v выполнена за %s", j.typ, j.chunk.ID, time.Since(start))
	}
}

// runJob выполняет шаблон задачи: собственная стадия, стадии соседей, CAS и работа
func (m *ChunkManager) runJob(c *Chunk, t JobType) string {
	st := stagesByJob[t]

	// Соседи появятся, когда окно накроет чанк; задачу запросят заново
	if t != JobGeneration && !c.NeighboursSet() {
		return outcomeAbandoned
	}

	cur := c.Stage()
	if cur < st.required {
		m.EnqueueDedupJob(c, st.prereq)
		m.EnqueueDedupJob(c, t)
		return outcomeRequeued
	}
	if cur > st.required {
		return outcomeAbandoned
	}

	if t != JobGeneration {
		waiting := false
		for _, nb := range c.Neighbours {
			if nb.Stage() < st.required {
				m.EnqueueDedupJob(nb, st.prereq)
				waiting = true
			}
		}
		if waiting {
			m.EnqueueDedupJob(c, t)
			return outcomeRequeued
		}
	}

	if !c.casStage(st.required, st.inProgress) {
		return outcomeAbandoned
	}

	switch t {
	case JobGeneration:
		m.gen.Generate(c)
	case JobLocalLighting:
		LightLocal(c)
	case JobNeighbourLighting:
		LightNeighbours(c)
	case JobMeshing:
		c.storeMesh(BuildMesh(c))
	}
	c.storeStage(st.complete)

	if t == JobMeshing {
		m.publish(MeshEvent{ID: c.ID, Version: c.StorageVersion()})
	}
	return outcomeCompleted
}

// publish отправляет уведомление без блокировки; при полном буфере оно теряется
func (m *ChunkManager) publish(ev MeshEvent) {
	select {
	case m.results <- ev:
	default:
		m.metrics.meshEventsDropped.Inc()
	}
}

// Close останавливает воркеры: задачи в очереди отбрасываются, выполняющиеся
// доводятся до конца. Повторный вызов ничего не делает.
func (m *ChunkManager) Close() {
	m.closeOnce.Do(func() {
		m.queueMu.Lock()
		m.retire = true
		dropped := m.queue.Len()
		for m.queue.Len() > 0 {
			j := m.queue.PopFront()
			j.chunk.clearEnqueued(j.typ)
		}
		m.queueMu.Unlock()
		m.cond.Broadcast()

		_ = m.group.Wait()
		m.metrics.queueDepth.Set(0)
		close(m.results)
		m.log.Info("🛑 Планировщик чанков остановлен, отброшено задач: %d", dropped)
	})
}
