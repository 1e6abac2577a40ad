// Package telemetry は tracing (OpenTelemetry) と metrics (Prometheus) の初期化、
// および Store の計装デコレータをまとめる。
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/hijjiri/todo-lists"

// InitTracer はグローバル TracerProvider を設定する。
// enabled=false のときは exporter を付けない（span は作られるが出力されない）。
func InitTracer(ctx context.Context, serviceName string, enabled bool, w io.Writer) (func(context.Context) error, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	)

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if enabled {
		exp, err := stdouttrace.New(
			stdouttrace.WithWriter(w),
		)
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Tracer はこのサービス共通の tracer を返す。
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
