// Package heapsnapshot decodes V8 heap snapshots and measures how many bytes
// are reachable from a chosen set of nodes.
//
// # Package Organization
//
// The package is organized into logical groups using file name prefixes:
//
// ## Core Decoding (core_*.go, types.go, errors.go)
//   - types.go: Snapshot, Node, Edge and Graph definitions
//   - core_loader.go: JSON loading of the snapshot envelope (ojg + JSONPath)
//   - core_schema.go: runtime field layout and single-record decoding
//
// ## Graph (graph_*.go)
//   - graph_builder.go: lock-step walk of the flat node and edge arrays
//   - graph_locator.go: property matchers and node/edge lookup
//
// ## Analysis (analysis_*.go)
//   - analysis_trace.go: breadth-first reachability size from a root set
//   - analysis_exclusion.go: concurrent depth-first size that skips
//     module-loader metadata edges
//
// ## Instrumentation
//   - metrics.go: OpenTelemetry spans and counters for build and trace
//
// # Usage Example
//
//	snap, err := heapsnapshot.LoadFile("Heap.heapsnapshot")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	g, err := heapsnapshot.Build(ctx, snap)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	modules, _ := g.FindNodes("name", heapsnapshot.Exact("Module"))
//	modules = heapsnapshot.FindNodesIn(modules, "type", heapsnapshot.Exact("object"))
//	size, err := g.TraceSize(ctx, modules)
//
// # Size Semantics
//
// The tracer sums self_size over the reachability closure of the roots,
// counting each node id once. This is not V8's dominator-based retained size:
// objects shared with other roots are still counted when reachable.
//
// The whole snapshot and the decoded graph are held in memory.
package heapsnapshot
