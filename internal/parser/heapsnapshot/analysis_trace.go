package heapsnapshot

import (
	"context"
	"time"

	"github.com/RoaringBitmap/roaring/roaring64"
	"go.opentelemetry.io/otel/attribute"

	"github.com/heap-trace/pkg/utils"
)

// DefaultTraceableTypes are the node types the tracer follows edges into.
// Other types are only counted when they are roots themselves.
var DefaultTraceableTypes = []string{
	"string",
	"object",
	"code",
	"regexp",
	"number",
	"native",
	"concatenated string",
	"sliced string",
	"symbol",
	"bigint",
}

// DefaultProgressEvery is the number of counted nodes between progress lines.
const DefaultProgressEvery = 1000

// TraceResult is the outcome of a size trace.
type TraceResult struct {
	Size    int64
	Visited int
	Roots   int
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithTracerLogger enables progress logging through logger.
func WithTracerLogger(logger utils.Logger) TracerOption {
	return func(t *Tracer) {
		t.logger = logger
	}
}

// WithProgressEvery sets how many counted nodes pass between progress lines.
// Zero or less disables progress logging.
func WithProgressEvery(n int) TracerOption {
	return func(t *Tracer) {
		t.progressEvery = n
	}
}

// WithAllowedTypes replaces the set of node types the traversal may enter.
func WithAllowedTypes(types ...string) TracerOption {
	return func(t *Tracer) {
		t.allowed = typeSet(types)
	}
}

// Tracer computes the reachability-closure size of a root set.
type Tracer struct {
	graph         *Graph
	logger        utils.Logger
	progressEvery int
	allowed       map[string]struct{}
}

// NewTracer creates a Tracer over g.
func NewTracer(g *Graph, opts ...TracerOption) *Tracer {
	t := &Tracer{
		graph:         g,
		progressEvery: DefaultProgressEvery,
		allowed:       typeSet(DefaultTraceableTypes),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TraceSize is Trace returning only the byte count.
func (t *Tracer) TraceSize(ctx context.Context, roots []*Node) (int64, error) {
	res, err := t.Trace(ctx, roots)
	if err != nil {
		return 0, err
	}
	return res.Size, nil
}

// Trace walks breadth-first from roots and sums self_size once per node id.
// An edge is followed only when its target is in the graph, not yet counted
// and of an allowed type.
func (t *Tracer) Trace(ctx context.Context, roots []*Node) (res *TraceResult, err error) {
	if t.graph == nil || t.graph.Nodes == nil {
		return nil, ErrGraphNotBuilt
	}

	ctx, span := startSpan(ctx, "heapsnapshot.Trace", attribute.Int("trace.roots", len(roots)))
	start := time.Now()
	defer func() {
		if res != nil {
			span.SetAttributes(attribute.Int64("trace.size", res.Size), attribute.Int("trace.visited", res.Visited))
			recordTraceMetrics(ctx, "bfs", time.Since(start), res.Size, res.Visited)
		}
		endSpan(span, err)
	}()

	res = &TraceResult{Roots: len(roots)}
	visited := roaring64.New()
	queue := make([]*Node, 0, len(roots))
	for _, r := range roots {
		if r != nil {
			queue = append(queue, r)
		}
	}

	head := 0
	lastQueueLen := len(queue)
	dequeued := 0
	for head < len(queue) {
		node := queue[head]
		queue[head] = nil
		head++

		dequeued++
		if dequeued%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		id := uint64(node.ID)
		if visited.Contains(id) {
			continue
		}
		visited.Add(id)
		res.Size += node.SelfSize
		res.Visited++

		if t.progressEvery > 0 && res.Visited%t.progressEvery == 0 {
			pending := len(queue) - head
			t.logProgress(res, pending, lastQueueLen)
			lastQueueLen = pending
		}

		for _, e := range node.Edges {
			if visited.Contains(uint64(e.To)) {
				continue
			}
			target, ok := t.graph.Nodes[e.To]
			if !ok {
				continue
			}
			if _, ok := t.allowed[target.Type]; !ok {
				continue
			}
			queue = append(queue, target)
		}

		// reclaim the consumed prefix once it dominates the backing array
		if head > 1<<16 && head > len(queue)/2 {
			n := copy(queue, queue[head:])
			queue = queue[:n]
			head = 0
		}
	}
	return res, nil
}

func (t *Tracer) logProgress(res *TraceResult, pending, lastPending int) {
	if t.logger == nil {
		return
	}
	percent := 0.0
	if total := t.graph.NodeCount(); total > 0 {
		percent = float64(res.Visited) / float64(total) * 100
	}
	trend := "↑"
	if lastPending > pending {
		trend = "↓"
	}
	t.logger.Info("Size: %10s. Searched: %6.2f%%. Left: %10d. Trend: %s",
		utils.FormatSize(res.Size), percent, pending, trend)
}

// TraceSize traces roots with the default allow-list and no progress logging.
func (g *Graph) TraceSize(ctx context.Context, roots []*Node) (int64, error) {
	return NewTracer(g, WithProgressEvery(0)).TraceSize(ctx, roots)
}

func typeSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}
