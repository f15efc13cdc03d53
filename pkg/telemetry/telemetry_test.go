package telemetry

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInit_Disabled(t *testing.T) {
	resetGlobalConfig()
	clearOtelEnv(t)

	ctx := context.Background()
	shutdown, err := Init(ctx)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if shutdown == nil {
		t.Fatal("Expected shutdown function to be non-nil")
	}
	if err := shutdown(ctx); err != nil {
		t.Errorf("Expected no error on shutdown, got %v", err)
	}
}

func TestInitWithConfig_Stdout(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer

	cfg := &Config{
		Enabled:        true,
		ServiceName:    "heap-trace-test",
		ServiceVersion: "test",
		TraceExporter:  ExporterStdout,
		MetricExporter: ExporterStdout,
	}
	shutdown, err := InitWithConfig(ctx, cfg, &out)
	if err != nil {
		t.Fatalf("InitWithConfig failed: %v", err)
	}

	_, span := otel.Tracer("telemetry-test").Start(ctx, "heapsnapshot.Build")
	span.End()

	counter, err := otel.Meter("telemetry-test").Int64Counter("heapsnapshot.nodes")
	if err != nil {
		t.Fatalf("Int64Counter failed: %v", err)
	}
	counter.Add(ctx, 3)

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "heapsnapshot.Build") {
		t.Errorf("Expected span in stdout export, got %q", output)
	}
	if !strings.Contains(output, "heapsnapshot.nodes") {
		t.Errorf("Expected metric in stdout export, got %q", output)
	}
}

func TestInitWithConfig_UnknownExporter(t *testing.T) {
	cfg := &Config{Enabled: true, TraceExporter: "zipkin", MetricExporter: ExporterNone}
	shutdown, err := InitWithConfig(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("Expected error for unknown exporter")
	}
	if shutdown == nil {
		t.Error("Expected shutdown function to be non-nil")
	}
}

func TestGetConfig(t *testing.T) {
	resetGlobalConfig()
	clearOtelEnv(t)
	t.Setenv("OTEL_SERVICE_NAME", "test-service")

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("Expected config to be non-nil")
	}
	if cfg.ServiceName != "test-service" {
		t.Errorf("Expected ServiceName 'test-service', got '%s'", cfg.ServiceName)
	}
	if Enabled() {
		t.Error("Expected Enabled() to return false")
	}
}

// resetGlobalConfig resets the global config for testing
func resetGlobalConfig() {
	globalConfig = nil
	configOnce = sync.Once{}
}
