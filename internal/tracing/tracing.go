// Package tracing wires distributed tracing for the sync engine, using
// the standard otel SDK + Jaeger exporter combination. InitTracer returns
// a TracerProvider even against an unreachable collector (nil only when
// the exporter or resource cannot be built);
// StartSpan returns a (context.Context, trace.Span) pair.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("replimesh")

// InitTracer builds and registers a TracerProvider exporting to a Jaeger
// collector at jaegerEndpoint. The provider is returned even if the
// endpoint is unreachable: export failures surface per-batch through the
// exporter, not at construction time, so callers must still Shutdown it on
// exit to flush pending spans and release resources.
func InitTracer(serviceName, jaegerEndpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("tracing: create jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracer = tp.Tracer("replimesh")

	return tp, nil
}

// StartSpan starts a span named name as a child of any span found in ctx.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
