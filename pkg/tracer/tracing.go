// Package tracer exports scenario spans over OTLP/gRPC when a collector is
// configured.
package tracer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	defs "xmtest/definitions"
)

type Config struct {
	// ServiceName becomes the service.name resource attribute.
	ServiceName string
	// Endpoint is the collector address (host:port). Empty disables tracing.
	Endpoint string
	Insecure bool
	// Attributes are added to the resource next to service.name.
	Attributes []attribute.KeyValue
}

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs a global tracer provider. Without an endpoint nothing is
// installed and the otel default (no-op) provider stays in place.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return noopShutdown, nil
	}
	tp, err := NewTracerProvider(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}
	return tp.Shutdown, nil
}

func NewTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	if cfg.ServiceName == "" {
		return nil, errors.New("tracer: service name is required")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(defaultAttributes(cfg)...),
	)
	if err != nil {
		return nil, fmt.Errorf("tracer: resource creation: %w", err)
	}

	exp, err := buildExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		// A run is a handful of scenarios; keep every span.
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

func defaultAttributes(cfg Config) []attribute.KeyValue {
	host, _ := os.Hostname()
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.HostName(host),
		semconv.ProcessPID(os.Getpid()),
	}
	if _, err := os.Stat(defs.ProcXen); err == nil {
		attrs = append(attrs, attribute.Bool("xen.present", true))
	}
	return append(attrs, cfg.Attributes...)
}

func buildExporter(ctx context.Context, cfg Config) (*otlptrace.Exporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	}

	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracer: OTLP exporter creation: %w", err)
	}
	return exp, nil
}
