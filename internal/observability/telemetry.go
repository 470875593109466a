package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/logging"
)

// Shutdown сбрасывает и останавливает экспорт трасс
type Shutdown func(context.Context) error

// InitTelemetry настраивает OTLP/HTTP экспорт и глобальный TracerProvider.
// Пустой otlp_endpoint отключает трассировку: спаны остаются no-op.
func InitTelemetry(ctx context.Context, cfg config.TelemetryConfig) (Shutdown, error) {
	if cfg.OTLPEndpoint == "" {
		logging.Debug("трассировка отключена")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logging.Info("OpenTelemetry: OTLP → %s, service=%s", cfg.OTLPEndpoint, cfg.ServiceName)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}
