package world

import (
	"testing"
	"time"

	"github.com/annel0/voxelstream/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatGen() Generator {
	return &FlatGenerator{Height: 64}
}

// drain выполняет задачи очереди в текущей горутине до её опустошения
func drain(t *testing.T, m *ChunkManager) int {
	t.Helper()
	processed := 0
	for {
		m.queueMu.Lock()
		if m.queue.Len() == 0 {
			m.queueMu.Unlock()
			return processed
		}
		j := m.queue.PopFront()
		m.queueMu.Unlock()

		j.chunk.clearEnqueued(j.typ)
		m.process(j)
		processed++
		require.Less(t, processed, 1_000_000, "очередь не сходится")
	}
}

func TestDefaultWorkerCount(t *testing.T) {
	n := DefaultWorkerCount(4)
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 4)
	assert.Equal(t, 1, DefaultWorkerCount(0))
}

func TestEnqueueDedup(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newChunkManager(flatGen(), ManagerOptions{Workers: 1, Registerer: reg})
	c := NewChunk(vec.ChunkID{})

	assert.True(t, m.EnqueueDedupJob(c, JobMeshing))
	assert.False(t, m.EnqueueDedupJob(c, JobMeshing), "повторная задача того же типа игнорируется")
	assert.True(t, m.EnqueueDedupJob(c, JobGeneration))
	assert.Equal(t, 2, m.QueueLen())
	assert.True(t, c.IsEnqueued(JobMeshing))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.jobsDeduplicated.WithLabelValues("meshing")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.metrics.queueDepth))

	drain(t, m)
	assert.False(t, c.IsEnqueued(JobMeshing), "бит сбрасывается при извлечении")
}

func TestGenerationJobIsIdempotent(t *testing.T) {
	m := newChunkManager(flatGen(), ManagerOptions{Workers: 1})
	c := NewChunk(vec.ChunkID{X: 4, Z: 4})

	assert.Equal(t, outcomeCompleted, m.runJob(c, JobGeneration))
	assert.Equal(t, StageGenerationComplete, c.Stage())
	blocks := c.storage.Blocks

	assert.Equal(t, outcomeAbandoned, m.runJob(c, JobGeneration), "повторная генерация ничего не делает")
	assert.Equal(t, blocks, c.storage.Blocks)
	assert.Equal(t, StageGenerationComplete, c.Stage())
}

func TestJobWithoutNeighboursIsAbandoned(t *testing.T) {
	m := newChunkManager(flatGen(), ManagerOptions{Workers: 1})
	c := NewChunk(vec.ChunkID{})
	require.Equal(t, outcomeCompleted, m.runJob(c, JobGeneration))

	assert.Equal(t, outcomeAbandoned, m.runJob(c, JobLocalLighting))
	assert.Equal(t, StageGenerationComplete, c.Stage())
	assert.Zero(t, m.QueueLen())
}

func TestJobRequeuesPrerequisites(t *testing.T) {
	m := newChunkManager(flatGen(), ManagerOptions{Workers: 1})
	grid := newGrid(nil, -1, -1, 3, 3)
	c := grid[vec.ChunkID{}]

	assert.Equal(t, outcomeRequeued, m.runJob(c, JobMeshing))
	assert.True(t, c.IsEnqueued(JobNeighbourLighting))
	assert.True(t, c.IsEnqueued(JobMeshing))

	// Собственная стадия готова, соседи нет
	c.storeStage(StageNeighbourLightingComplete)
	drainQueue(m)
	assert.Equal(t, outcomeRequeued, m.runJob(c, JobMeshing))
	for _, nb := range c.Neighbours {
		assert.True(t, nb.IsEnqueued(JobNeighbourLighting))
	}
	assert.Equal(t, StageNeighbourLightingComplete, c.Stage())
}

// drainQueue отбрасывает задачи без выполнения
func drainQueue(m *ChunkManager) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	for m.queue.Len() > 0 {
		j := m.queue.PopFront()
		j.chunk.clearEnqueued(j.typ)
	}
}

func TestPipelineRings(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newChunkManager(flatGen(), ManagerOptions{Workers: 1, RenderDistance: 2, ResultsBuffer: 64, Registerer: reg})

	m.SetCenterChunk(vec.ChunkID{})
	assert.Equal(t, 11*11, m.LoadedChunkCount(), "окно загрузки = дальность + 3")
	assert.Equal(t, 121.0, testutil.ToFloat64(m.metrics.loadedChunks))

	drain(t, m)

	for _, c := range m.chunks {
		ring := c.ID.Distance(vec.ChunkID{})
		switch {
		case ring <= 2:
			assert.Equal(t, StageMeshingComplete, c.Stage(), "чанк %v", c.ID)
		case ring == 3:
			assert.Equal(t, StageNeighbourLightingComplete, c.Stage(), "чанк %v", c.ID)
		case ring == 4:
			assert.Equal(t, StageLocalLightingComplete, c.Stage(), "чанк %v", c.ID)
		default:
			assert.Equal(t, StageGenerationComplete, c.Stage(), "чанк %v", c.ID)
			assert.False(t, c.NeighboursSet(), "у чанков внешнего кольца нет соседей")
		}
	}

	render := m.GetChunksInRenderArea()
	require.Len(t, render, 25)
	assert.Equal(t, vec.ChunkID{}, render[0].ID, "ближайший чанк первый")

	events := len(m.results)
	assert.Equal(t, 25, events)
	ev := <-m.results
	c := m.GetChunk(ev.ID)
	require.NotNil(t, c)
	assert.True(t, c.MarkReady())
	assert.Equal(t, ev.Version, c.Mesh().Version, "кеш меша актуален")
	assert.NotEmpty(t, c.Mesh().Vertices)
}

func TestSetCenterChunkMovesWindow(t *testing.T) {
	m := newChunkManager(flatGen(), ManagerOptions{Workers: 1, RenderDistance: 2})

	m.SetCenterChunk(vec.ChunkID{})
	queued := m.QueueLen()
	m.SetCenterChunk(vec.ChunkID{})
	assert.Equal(t, queued, m.QueueLen(), "тот же центр - ничего не делается")
	assert.Equal(t, 121, m.LoadedChunkCount())

	m.SetCenterChunk(vec.ChunkID{X: 1})
	assert.Equal(t, 121+11, m.LoadedChunkCount(), "добавился один столбец чанков")
	assert.True(t, m.GetChunk(vec.ChunkID{X: 3}).NeighboursSet())

	m.SetRenderDistance(100)
	assert.Equal(t, 32, m.RenderDistance())
	m.SetRenderDistance(3)
	m.SetCenterChunk(vec.ChunkID{X: 1})
	assert.Equal(t, 13*13, m.LoadedChunkCount(), "смена дальности пересчитывает окно")

	assert.NotNil(t, m.GetChunkAt(vec.Vec3{X: 20, Y: 5, Z: -3}))
	assert.Nil(t, m.GetChunkAt(vec.Vec3{X: 1000}))
}

func TestConcurrentPipelineAndShutdown(t *testing.T) {
	m := NewChunkManager(flatGen(), ManagerOptions{Workers: 4, RenderDistance: 2, ResultsBuffer: 8})
	m.SetCenterChunk(vec.ChunkID{X: 10, Z: -4})

	require.Eventually(t, func() bool {
		for _, c := range m.GetChunksInRenderArea() {
			if c.Stage() < StageMeshingComplete {
				return false
			}
		}
		return true
	}, 60*time.Second, 20*time.Millisecond)

	m.Close()
	m.Close()

	c := m.GetChunk(vec.ChunkID{X: 10, Z: -4})
	assert.False(t, m.EnqueueDedupJob(c, JobMeshing), "после остановки задачи не принимаются")
	assert.False(t, c.IsEnqueued(JobMeshing))
	assert.Zero(t, m.QueueLen())

	received := 0
	for range m.Results() {
		received++
	}
	assert.LessOrEqual(t, received, 8, "канал результатов закрыт и не больше буфера")
}

func TestShutdownDropsPendingJobs(t *testing.T) {
	m := newChunkManager(flatGen(), ManagerOptions{Workers: 1, RenderDistance: 2})
	m.SetCenterChunk(vec.ChunkID{})
	require.NotZero(t, m.QueueLen())

	m.Close()
	assert.Zero(t, m.QueueLen())
	for _, c := range m.GetChunksInRenderArea() {
		assert.False(t, c.IsEnqueued(JobMeshing))
		assert.Equal(t, StageEmpty, c.Stage())
	}
}
