// Package telemetry wires OpenTelemetry tracing and metrics for heap-trace.
package telemetry

import (
	"fmt"
	"os"
	"strings"
)

// Exporter names accepted by OTEL_TRACES_EXPORTER and OTEL_METRICS_EXPORTER.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Config holds OpenTelemetry configuration loaded from environment variables.
type Config struct {
	// Enabled is read from OTEL_ENABLED.
	Enabled bool

	ServiceName    string // OTEL_SERVICE_NAME, default "heap-trace"
	ServiceVersion string // OTEL_SERVICE_VERSION, default "unknown"

	// TraceExporter is otlp, stdout or none (OTEL_TRACES_EXPORTER).
	TraceExporter string
	// MetricExporter is stdout or none (OTEL_METRICS_EXPORTER). Analysis
	// runs are short lived, so metrics default to none.
	MetricExporter string

	// Endpoint is the OTLP collector endpoint.
	Endpoint string
	// Protocol is grpc or http/protobuf.
	Protocol string
	// Headers are sent with every OTLP export, e.g. Authorization.
	// Format: "key1=value1,key2=value2"
	Headers  map[string]string
	Insecure bool

	// Sampler is one of always_on, always_off, traceidratio,
	// parentbased_always_on, parentbased_always_off, parentbased_traceidratio.
	Sampler    string
	SamplerArg string

	// ResourceAttrs are extra resource attributes (OTEL_RESOURCE_ATTRIBUTES).
	ResourceAttrs map[string]string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Enabled:        strings.EqualFold(os.Getenv("OTEL_ENABLED"), "true"),
		ServiceName:    getEnvOrDefault("OTEL_SERVICE_NAME", "heap-trace"),
		ServiceVersion: getEnvOrDefault("OTEL_SERVICE_VERSION", "unknown"),
		TraceExporter:  strings.ToLower(getEnvOrDefault("OTEL_TRACES_EXPORTER", ExporterOTLP)),
		MetricExporter: strings.ToLower(getEnvOrDefault("OTEL_METRICS_EXPORTER", ExporterNone)),
		Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Protocol:       getEnvOrDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		Headers:        parseKeyValuePairs(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Insecure:       strings.EqualFold(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"), "true"),
		Sampler:        os.Getenv("OTEL_TRACES_SAMPLER"),
		SamplerArg:     os.Getenv("OTEL_TRACES_SAMPLER_ARG"),
		ResourceAttrs:  parseKeyValuePairs(os.Getenv("OTEL_RESOURCE_ATTRIBUTES")),
	}
}

// Validate checks the exporter names.
func (c *Config) Validate() error {
	switch c.TraceExporter {
	case ExporterOTLP, ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("%w: traces %q", ErrUnknownExporter, c.TraceExporter)
	}
	switch c.MetricExporter {
	case ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("%w: metrics %q", ErrUnknownExporter, c.MetricExporter)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseKeyValuePairs parses "k1=v1,k2=v2". Values may contain '='.
func parseKeyValuePairs(s string) map[string]string {
	result := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		result[key] = strings.TrimSpace(value)
	}
	return result
}
