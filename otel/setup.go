package otel

import (
	"context"
	"fmt"
	"strings"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const defaultExportTimeout = 10 * time.Second

// TracingConfig configures trace export.
type TracingConfig struct {
	// Endpoint is an OTLP/HTTP host:port or URL. Empty disables export.
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool
	Headers        map[string]string
	ExportTimeout  time.Duration
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// SetupTracing installs a global tracer provider that batches spans to an
// OTLP/HTTP collector. With no endpoint it leaves the global provider
// untouched and returns a no-op shutdown.
func SetupTracing(ctx context.Context, cfg TracingConfig) (ShutdownFunc, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	timeout := cfg.ExportTimeout
	if timeout <= 0 {
		timeout = defaultExportTimeout
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithTimeout(timeout)}
	if strings.Contains(endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otel: create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(serviceResource(cfg)),
	)
	otelapi.SetTracerProvider(tp)
	otelapi.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

func serviceResource(cfg TracingConfig) *resource.Resource {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "mcpserve"
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", name)}
	if v := strings.TrimSpace(cfg.ServiceVersion); v != "" {
		attrs = append(attrs, attribute.String("service.version", v))
	}
	return resource.NewSchemaless(attrs...)
}
