package otel

import (
	"context"
	"testing"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func TestSetupTracing_NoEndpoint(t *testing.T) {
	before := otelapi.GetTracerProvider()

	shutdown, err := SetupTracing(context.Background(), TracingConfig{})
	if err != nil {
		t.Fatalf("SetupTracing() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
	if otelapi.GetTracerProvider() != before {
		t.Error("global tracer provider changed without an endpoint")
	}
}

func TestSetupTracing_InstallsProvider(t *testing.T) {
	before := otelapi.GetTracerProvider()
	t.Cleanup(func() { otelapi.SetTracerProvider(before) })

	for _, endpoint := range []string{"localhost:4318", "http://localhost:4318/v1/traces"} {
		t.Run(endpoint, func(t *testing.T) {
			shutdown, err := SetupTracing(context.Background(), TracingConfig{
				Endpoint:    endpoint,
				ServiceName: "mcpserve-test",
				Insecure:    true,
			})
			if err != nil {
				t.Fatalf("SetupTracing() error = %v", err)
			}
			if otelapi.GetTracerProvider() == before {
				t.Error("global tracer provider was not replaced")
			}
			// Nothing was recorded, so shutdown does not reach the collector.
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown() error = %v", err)
			}
		})
	}
}

func TestServiceResource(t *testing.T) {
	res := serviceResource(TracingConfig{ServiceVersion: "1.2.3"})
	name, ok := res.Set().Value(attribute.Key("service.name"))
	if !ok || name.AsString() != "mcpserve" {
		t.Errorf("service.name = %v, want mcpserve", name.AsString())
	}
	version, ok := res.Set().Value(attribute.Key("service.version"))
	if !ok || version.AsString() != "1.2.3" {
		t.Errorf("service.version = %v, want 1.2.3", version.AsString())
	}
}
