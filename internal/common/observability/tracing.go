// internal/common/observability/tracing.go
package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

type Tracing struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// NewTracing wires a Jaeger collector endpoint. An empty endpoint disables
// tracing without failing startup.
func NewTracing(serviceName, endpoint string) *Tracing {
	if endpoint == "" {
		return &Tracing{}
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	if err != nil {
		log.Printf("Failed to create Jaeger exporter: %v", err)
		return &Tracing{}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	)
	otel.SetTracerProvider(provider)

	return &Tracing{
		tracerProvider: provider,
		tracer:         provider.Tracer(serviceName),
	}
}

// StartSpan opens a span for one record. The returned end function is safe to
// call when tracing is disabled.
func (t *Tracing) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	if t.tracer == nil {
		return ctx, func() {}
	}
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}

func (t *Tracing) Shutdown() {
	if t.tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		t.tracerProvider.Shutdown(ctx)
	}
}
