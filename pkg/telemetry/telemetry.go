// Package telemetry wires OpenTelemetry tracing and metrics for heap-trace.
//
// Configuration comes from the standard OTEL_* environment variables:
//
//	OTEL_ENABLED                    - Enable/disable telemetry (default: false)
//	OTEL_SERVICE_NAME               - Service name (default: heap-trace)
//	OTEL_SERVICE_VERSION            - Service version (default: unknown)
//	OTEL_TRACES_EXPORTER            - otlp, stdout or none (default: otlp)
//	OTEL_METRICS_EXPORTER           - stdout or none (default: none)
//	OTEL_EXPORTER_OTLP_ENDPOINT     - OTLP collector endpoint
//	OTEL_EXPORTER_OTLP_PROTOCOL     - grpc or http/protobuf (default: grpc)
//	OTEL_EXPORTER_OTLP_HEADERS      - Headers, e.g. Authorization=Bearer xxx
//	OTEL_EXPORTER_OTLP_INSECURE     - Use insecure connection (default: false)
//	OTEL_TRACES_SAMPLER             - Sampler type (default: always_on)
//	OTEL_TRACES_SAMPLER_ARG         - Sampler argument (e.g., ratio)
//	OTEL_RESOURCE_ATTRIBUTES        - Additional resource attributes
//
// Until Init runs with telemetry enabled, otel.Tracer and otel.Meter return
// no-op implementations, so instrumented packages cost nothing.
package telemetry

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

// ErrUnknownExporter is returned for unsupported exporter names.
var ErrUnknownExporter = errors.New("unknown telemetry exporter")

var (
	globalConfig *Config
	configOnce   sync.Once
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error {
	return nil
}

// Init configures telemetry from the environment. Stdout exporters write
// to stderr so command output stays machine readable.
func Init(ctx context.Context) (ShutdownFunc, error) {
	return InitWithConfig(ctx, loadConfig(), os.Stderr)
}

// InitWithConfig installs global tracer and meter providers for cfg.
// A disabled config leaves the no-op providers in place.
func InitWithConfig(ctx context.Context, cfg *Config, out io.Writer) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noopShutdown, nil
	}
	if err := cfg.Validate(); err != nil {
		return noopShutdown, err
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	var shutdowns []ShutdownFunc

	if cfg.TraceExporter != ExporterNone {
		exporter, err := createSpanExporter(ctx, cfg, out)
		if err != nil {
			return noopShutdown, err
		}
		tp := trace.NewTracerProvider(
			trace.WithResource(res),
			trace.WithBatcher(exporter),
			trace.WithSampler(createSampler(cfg)),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if cfg.MetricExporter != ExporterNone {
		reader, err := createMetricReader(cfg, out)
		if err != nil {
			return shutdownAll(shutdowns), err
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		otel.SetMeterProvider(mp)
		shutdowns = append(shutdowns, mp.Shutdown)
	}

	return shutdownAll(shutdowns), nil
}

func shutdownAll(fns []ShutdownFunc) ShutdownFunc {
	return func(ctx context.Context) error {
		var errs []error
		for i := len(fns) - 1; i >= 0; i-- {
			if err := fns[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Enabled returns whether telemetry is enabled in the environment.
func Enabled() bool {
	return loadConfig().Enabled
}

// GetConfig returns the cached environment configuration.
func GetConfig() *Config {
	return loadConfig()
}

func loadConfig() *Config {
	configOnce.Do(func() {
		globalConfig = LoadFromEnv()
	})
	return globalConfig
}
