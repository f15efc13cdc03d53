package heapsnapshot

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("heap-trace/heapsnapshot")
	meter  = otel.Meter("heap-trace/heapsnapshot")
)

var (
	buildLatency  metric.Float64Histogram
	buildNodes    metric.Int64Histogram
	buildEdges    metric.Int64Histogram
	traceLatency  metric.Float64Histogram
	traceBytes    metric.Int64Histogram
	traceVisited  metric.Int64Histogram
	metricsOnce   sync.Once
	metricsInitOK bool
)

func initMetrics() bool {
	metricsOnce.Do(func() {
		var err error
		if buildLatency, err = meter.Float64Histogram("heapsnapshot_build_duration_seconds",
			metric.WithDescription("Duration of graph builds"), metric.WithUnit("s")); err != nil {
			return
		}
		if buildNodes, err = meter.Int64Histogram("heapsnapshot_build_nodes",
			metric.WithDescription("Nodes decoded per build")); err != nil {
			return
		}
		if buildEdges, err = meter.Int64Histogram("heapsnapshot_build_edges",
			metric.WithDescription("Edges decoded per build")); err != nil {
			return
		}
		if traceLatency, err = meter.Float64Histogram("heapsnapshot_trace_duration_seconds",
			metric.WithDescription("Duration of size traces"), metric.WithUnit("s")); err != nil {
			return
		}
		if traceBytes, err = meter.Int64Histogram("heapsnapshot_trace_bytes",
			metric.WithDescription("Bytes reachable from the traced roots"), metric.WithUnit("By")); err != nil {
			return
		}
		if traceVisited, err = meter.Int64Histogram("heapsnapshot_trace_visited_nodes",
			metric.WithDescription("Distinct nodes counted per trace")); err != nil {
			return
		}
		metricsInitOK = true
	})
	return metricsInitOK
}

func recordBuildMetrics(ctx context.Context, d time.Duration, nodes, edges int, success bool) {
	if !initMetrics() {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	buildLatency.Record(ctx, d.Seconds(), attrs)
	if success {
		buildNodes.Record(ctx, int64(nodes))
		buildEdges.Record(ctx, int64(edges))
	}
}

func recordTraceMetrics(ctx context.Context, mode string, d time.Duration, size int64, visited int) {
	if !initMetrics() {
		return
	}
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	traceLatency.Record(ctx, d.Seconds(), attrs)
	traceBytes.Record(ctx, size, attrs)
	traceVisited.Record(ctx, int64(visited), attrs)
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
