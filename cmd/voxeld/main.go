package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxelstream/internal/config"
	"github.com/annel0/voxelstream/internal/logging"
	"github.com/annel0/voxelstream/internal/observability"
	"github.com/annel0/voxelstream/internal/world"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML конфигурации (или VOXEL_CONFIG)")
		frames     = flag.Int("frames", 0, "Количество кадров (0 - до сигнала)")
		fps        = flag.Int("fps", 60, "Частота обновления точки обзора")
		speed      = flag.Float64("speed", 0.5, "Скорость движения точки обзора, блоков за кадр")
		height     = flag.Float64("height", 100, "Высота точки обзора")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := logging.InitDefaultLogger("voxeld", logging.Options{
		Dir:             cfg.Logging.Dir,
		MinConsoleLevel: level,
		MinFileLevel:    min(level, logging.DEBUG),
	}); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(cfg, *frames, *fps, float32(*speed), float32(*height)); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config, frames, fps int, speed, height float32) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := world.NewWorld(*cfg, world.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		return fmt.Errorf("создание мира: %w", err)
	}
	defer w.Close()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry, w.InstanceID.String())
	if err != nil {
		return fmt.Errorf("инициализация телеметрии: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка остановки телеметрии: %v", err)
		}
	}()

	if cfg.Metrics.Enabled {
		srv := startMetrics(cfg.Metrics.GetMetricsPort())
		defer srv.Close()
	}

	logging.Info("🎮 Запуск обхода мира: сид=%d, дальность=%d, воркеров=%d",
		cfg.World.Seed, cfg.World.RenderDistance, w.Manager().WorkerCount())

	if fps <= 0 {
		fps = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	pos := mgl32.Vec3{0.5, height, 0.5}
	dir := mgl32.Vec3{1, 0, 0}
	ready := 0

	for frame := 1; frames == 0 || frame <= frames; frame++ {
		select {
		case <-ctx.Done():
			logging.Info("📡 Получен сигнал завершения на кадре %d", frame)
			return nil
		case <-ticker.C:
		}

		pos = pos.Add(dir.Mul(speed))
		w.Update(pos)
		ready += drainResults(w)

		if frame%fps == 0 {
			logging.Info("📊 Кадр %d: позиция (%.1f, %.1f, %.1f), загружено чанков %d, готово мешей %d, очередь %d",
				frame, pos.X(), pos.Y(), pos.Z(), w.Manager().LoadedChunkCount(), ready, w.Manager().QueueLen())
		}
	}

	logging.Info("👋 Обход завершён, готово мешей: %d", ready)
	return nil
}

// drainResults забирает уведомления о мешах, как это делал бы рендерер после загрузки на GPU
func drainResults(w *world.World) int {
	n := 0
	for {
		select {
		case ev, ok := <-w.Results():
			if !ok {
				return n
			}
			c := w.Manager().GetChunk(ev.ID)
			if c == nil {
				continue
			}
			mesh := c.Mesh()
			if c.MarkReady() {
				n++
				logging.Trace("Чанк %v готов: вершин %d, индексов %d", ev.ID, len(mesh.Vertices), len(mesh.Indices))
			}
		default:
			return n
		}
	}
}

// startMetrics запускает HTTP-эндпоинт Prometheus в отдельной горутине
func startMetrics(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Ошибка Prometheus HTTP сервера: %v", err)
		}
	}()
	return srv
}
