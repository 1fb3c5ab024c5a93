package tracer

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const serviceName = "weread-agent"

// Init 启用时注册 OTLP/HTTP 导出器，返回的 shutdown 在退出前调用。
// 未启用时全局使用 otel 默认的空实现。
func Init(ctx context.Context, enabled bool, endpoint string) func(context.Context) error {
	if !enabled {
		log.Debug("opentelemetry tracing disabled")
		return func(context.Context) error { return nil }
	}
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.WithError(err).Warn("create otlp exporter failed, tracing disabled")
		return func(context.Context) error { return nil }
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)
	log.WithField("endpoint", endpoint).Info("opentelemetry tracer initialized")

	return tp.Shutdown
}
