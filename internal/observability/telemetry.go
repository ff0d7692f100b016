package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/voxelstream/internal/config"
	"github.com/annel0/voxelstream/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ShutdownFunc завершает экспорт трасс
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// При выключенной телеметрии ничего не делает: задачи чанков пишут спаны в no-op провайдер.
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, cfg config.TelemetryConfig, instanceID string) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}

	// OTLP HTTP экспортер (по умолчанию localhost:4318, см. OTEL_EXPORTER_OTLP_ENDPOINT)
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("создание OTLP экспортера: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceInstanceID(instanceID),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("описание ресурса: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry инициализирован (OTLP → 4318, service=%s)", cfg.ServiceName)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}
