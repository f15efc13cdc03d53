package heapsnapshot

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/roaring64"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/heap-trace/pkg/utils"
)

// ExclusionRule skips edges whose value is listed in EdgeValues when they
// leave a node of type NodeType named NodeName.
type ExclusionRule struct {
	NodeType   string
	NodeName   string
	EdgeValues []string
}

// DefaultModuleExclusion keeps module-loader bookkeeping out of a CommonJS
// Module object's size.
var DefaultModuleExclusion = ExclusionRule{
	NodeType:   "object",
	NodeName:   "Module",
	EdgeValues: []string{"filename", "parent", "path", "paths", "__proto__"},
}

// Skips reports whether the rule excludes edge e leaving from.
func (r ExclusionRule) Skips(from *Node, e *Edge) bool {
	if from.Type != r.NodeType || from.Name != r.NodeName {
		return false
	}
	for _, v := range r.EdgeValues {
		if e.Value == v {
			return true
		}
	}
	return false
}

// ExclusionOption configures an ExclusionSearch.
type ExclusionOption func(*ExclusionSearch)

// WithExclusionRules replaces the default rule set.
func WithExclusionRules(rules ...ExclusionRule) ExclusionOption {
	return func(s *ExclusionSearch) {
		s.rules = rules
	}
}

// WithWorkers bounds the number of concurrently walking goroutines.
func WithWorkers(n int) ExclusionOption {
	return func(s *ExclusionSearch) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithExclusionLogger sets the logger for search diagnostics.
func WithExclusionLogger(logger utils.Logger) ExclusionOption {
	return func(s *ExclusionSearch) {
		s.logger = logger
	}
}

// ExclusionSearch is a concurrent depth-first size walk that skips edges
// matched by its rules. It follows edges into nodes of any type.
type ExclusionSearch struct {
	graph   *Graph
	rules   []ExclusionRule
	workers int
	logger  utils.Logger
}

// NewExclusionSearch creates an ExclusionSearch over g.
func NewExclusionSearch(g *Graph, opts ...ExclusionOption) *ExclusionSearch {
	s := &ExclusionSearch{
		graph:   g,
		rules:   []ExclusionRule{DefaultModuleExclusion},
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExclusionSearch) debugf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(format, args...)
	}
}

func (s *ExclusionSearch) skips(from *Node, e *Edge) bool {
	for _, r := range s.rules {
		if r.Skips(from, e) {
			return true
		}
	}
	return false
}

// Search sums self_size over every node reachable from start through edges
// no rule excludes, counting each node id once.
//
// A child is claimed in the shared visited set before it is walked, so each
// node is expanded by exactly one goroutine. When no worker slot is free the
// child is walked by the current goroutine instead.
func (s *ExclusionSearch) Search(ctx context.Context, start *Node) (res *TraceResult, err error) {
	if s.graph == nil || s.graph.Nodes == nil {
		return nil, ErrGraphNotBuilt
	}
	res = &TraceResult{}
	if start == nil {
		return res, nil
	}
	res.Roots = 1

	ctx, span := startSpan(ctx, "heapsnapshot.SearchExcluding",
		attribute.Int64("search.start", start.ID),
		attribute.Int("search.workers", s.workers),
	)
	began := time.Now()
	defer func() {
		if err == nil {
			span.SetAttributes(attribute.Int64("trace.size", res.Size), attribute.Int("trace.visited", res.Visited))
			recordTraceMetrics(ctx, "exclusion", time.Since(began), res.Size, res.Visited)
		}
		endSpan(span, err)
	}()

	var (
		mu      sync.Mutex
		visited = roaring64.New()
		size    atomic.Int64
		count   atomic.Int64
		skipped atomic.Int64
	)
	claim := func(n *Node) bool {
		mu.Lock()
		defer mu.Unlock()
		if visited.Contains(uint64(n.ID)) {
			return false
		}
		visited.Add(uint64(n.ID))
		size.Add(n.SelfSize)
		count.Add(1)
		return true
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)

	var walk func(root *Node) error
	walk = func(root *Node) error {
		stack := []*Node{root}
		steps := 0
		for len(stack) > 0 {
			steps++
			if steps%ctxCheckInterval == 0 {
				if err := egCtx.Err(); err != nil {
					return err
				}
			}

			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, e := range n.Edges {
				if s.skips(n, e) {
					skipped.Add(1)
					continue
				}
				child, ok := s.graph.Nodes[e.To]
				if !ok || !claim(child) {
					continue
				}
				if !eg.TryGo(func() error { return walk(child) }) {
					stack = append(stack, child)
				}
			}
		}
		return nil
	}

	claim(start)
	eg.Go(func() error { return walk(start) })
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res.Size = size.Load()
	res.Visited = int(count.Load())
	s.debugf("heapsnapshot: exclusion search from %d counted %d nodes, skipped %d edges", start.ID, res.Visited, skipped.Load())
	return res, nil
}

// SearchExcluding runs an ExclusionSearch with the default Module rule.
func (g *Graph) SearchExcluding(ctx context.Context, start *Node) (int64, error) {
	res, err := NewExclusionSearch(g).Search(ctx, start)
	if err != nil {
		return 0, err
	}
	return res.Size, nil
}
