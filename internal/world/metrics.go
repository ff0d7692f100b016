package world

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики планировщика чанков
type Metrics struct {
	jobsEnqueued      *prometheus.CounterVec
	jobsDeduplicated  *prometheus.CounterVec
	jobsProcessed     *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	queueDepth        prometheus.Gauge
	loadedChunks      prometheus.Gauge
	chunkStages       *prometheus.GaugeVec
	meshEventsDropped prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil - без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "scheduler",
			Name:      "jobs_enqueued_total",
			Help:      "Задачи, поставленные в очередь.",
		}, []string{"type"}),
		jobsDeduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "scheduler",
			Name:      "jobs_deduplicated_total",
			Help:      "Задачи, отброшенные как дубликаты уже стоящих в очереди.",
		}, []string{"type"}),
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "scheduler",
			Name:      "jobs_processed_total",
			Help:      "Обработанные задачи по результату (completed, requeued, abandoned).",
		}, []string{"type", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Время выполнения задачи.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 9),
		}, []string{"type"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Количество задач в очереди.",
		}),
		loadedChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "loaded_chunks",
			Help:      "Количество загруженных чанков.",
		}),
		chunkStages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "chunks_by_stage",
			Help:      "Количество загруженных чанков по стадиям.",
		}, []string{"stage"}),
		meshEventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "scheduler",
			Name:      "mesh_events_dropped_total",
			Help:      "Уведомления о готовых мешах, не поместившиеся в буфер.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.jobsEnqueued, m.jobsDeduplicated, m.jobsProcessed, m.jobDuration,
			m.queueDepth, m.loadedChunks, m.chunkStages, m.meshEventsDropped,
		)
	}
	return m
}

func (m *Metrics) observeStages(counts [stageCount]int) {
	for s, n := range counts {
		m.chunkStages.WithLabelValues(Stage(s).String()).Set(float64(n))
	}
}
