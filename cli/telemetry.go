package cli

import (
	"context"
	"time"

	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/mcpserve/catalog"
	mcpotel "github.com/petal-labs/mcpserve/otel"
)

const telemetryShutdownTimeout = 5 * time.Second

// startTelemetry installs trace export and the catalog scan observer. The
// returned function undoes both.
func startTelemetry(ctx context.Context, env commandEnv) (func(), error) {
	shutdown, err := mcpotel.SetupTracing(ctx, mcpotel.TracingConfig{
		Endpoint:    env.cfg.Telemetry.OTLPEndpoint,
		ServiceName: env.cfg.Telemetry.ServiceName,
		Insecure:    env.cfg.Telemetry.Insecure,
	})
	if err != nil {
		return nil, exitError(exitRuntime, "initializing tracing: %v", err)
	}

	observer, err := mcpotel.NewScanObserver(
		otelapi.GetMeterProvider().Meter("mcpserve/catalog"),
		otelapi.GetTracerProvider().Tracer("mcpserve/catalog"),
	)
	if err != nil {
		_ = shutdown(ctx)
		return nil, exitError(exitRuntime, "initializing catalog observability: %v", err)
	}
	catalog.SetObserver(observer)

	return func() {
		catalog.SetObserver(nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			env.logger.Warn("tracing shutdown failed", "error", err)
		}
	}, nil
}
