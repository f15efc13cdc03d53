package heapsnapshot

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/heap-trace/pkg/utils"
)

// ctxCheckInterval is how many nodes are processed between context checks.
const ctxCheckInterval = 4096

// BuildOption configures Build.
type BuildOption func(*builder)

// WithBuildLogger sets the logger used for build diagnostics.
func WithBuildLogger(logger utils.Logger) BuildOption {
	return func(b *builder) {
		b.logger = logger
	}
}

type builder struct {
	logger utils.Logger
}

func (b *builder) debugf(format string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Debug(format, args...)
	}
}

// Build decodes every node of snap together with its outbound edges.
//
// Edges are not indexed by node: node i owns the next edge_count records
// after those of nodes 0..i-1, so a single cursor is threaded through the
// walk. The build fails when the edge counts do not add up to the edge
// array length. If two nodes share an id the later one wins.
func Build(ctx context.Context, snap *Snapshot, opts ...BuildOption) (g *Graph, err error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}

	ctx, span := startSpan(ctx, "heapsnapshot.Build",
		attribute.Int("snapshot.node_count", snap.NodeCount),
		attribute.Int("snapshot.edge_count", snap.EdgeCount),
	)
	start := time.Now()
	edgeTotal := 0
	defer func() {
		recordBuildMetrics(ctx, time.Since(start), g.Len(), edgeTotal, err == nil)
		endSpan(span, err)
	}()

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	schema, err := BuildSchema(snap.NodeFields, snap.EdgeFields, snap.NodeTypes, snap.EdgeTypes)
	if err != nil {
		return nil, err
	}

	nodeStride := schema.NodeFieldCount()
	edgeStride := schema.EdgeFieldCount()

	graph := &Graph{
		Schema:        schema,
		Nodes:         make(map[int64]*Node, snap.NodeCount),
		order:         make([]int64, 0, snap.NodeCount),
		expectedNodes: snap.NodeCount,
		expectedEdges: snap.EdgeCount,
	}

	cursor := 0
	for i := 0; i < snap.NodeCount; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		node, err := schema.DecodeNode(snap.Nodes, snap.Strings, i*nodeStride)
		if err != nil {
			return nil, err
		}
		if node.EdgeCount < 0 {
			return nil, malformed("node %d has negative edge_count %d", node.ID, node.EdgeCount)
		}

		if node.EdgeCount > int64((len(snap.Edges)-cursor)/edgeStride) {
			return nil, malformed("node %d claims %d edges, only %d edge records remain",
				node.ID, node.EdgeCount, (len(snap.Edges)-cursor)/edgeStride)
		}

		node.Edges = make([]*Edge, 0, node.EdgeCount)
		for j := 0; j < int(node.EdgeCount); j++ {
			edge, err := b.buildEdge(schema, snap, node.ID, cursor+j*edgeStride)
			if err != nil {
				return nil, err
			}
			node.Edges = append(node.Edges, edge)
		}
		cursor += int(node.EdgeCount) * edgeStride
		edgeTotal += int(node.EdgeCount)

		if _, dup := graph.Nodes[node.ID]; dup {
			b.debugf("heapsnapshot: node id %d at offset %d replaces an earlier node", node.ID, i*nodeStride)
		} else {
			graph.order = append(graph.order, node.ID)
		}
		graph.Nodes[node.ID] = node
	}

	if cursor != len(snap.Edges) {
		return nil, malformed("edge_count sum covers %d edge values, edge array has %d", cursor, len(snap.Edges))
	}

	span.SetAttributes(attribute.Int("graph.nodes", graph.Len()), attribute.Int("graph.edges", edgeTotal))
	b.debugf("heapsnapshot: built graph with %d nodes and %d edges", graph.Len(), edgeTotal)
	return graph, nil
}

func (b *builder) buildEdge(schema *Schema, snap *Snapshot, from int64, offset int) (*Edge, error) {
	raw, err := schema.DecodeEdge(snap.Edges, offset)
	if err != nil {
		return nil, err
	}

	var value string
	if raw.Type == EdgeTypeElement || raw.Type == EdgeTypeHidden {
		value = "[" + strconv.FormatInt(raw.NameOrIndex, 10) + "]"
	} else {
		value = stringAt(snap.Strings, raw.NameOrIndex)
	}

	targetID, targetName, err := schema.nodeRef(snap.Nodes, snap.Strings, raw.ToNode)
	if err != nil {
		return nil, err
	}

	return &Edge{
		ID:    int64(offset),
		From:  from,
		To:    targetID,
		Type:  raw.Type,
		Value: value,
		Label: value + " :: " + targetName + " @" + strconv.FormatInt(targetID, 10),
	}, nil
}

// nodeRef decodes only the id and name of the node record at offset.
func (s *Schema) nodeRef(nodes []int64, strs []string, offset int64) (int64, string, error) {
	stride := int64(s.NodeFieldCount())
	if offset < 0 || offset+stride > int64(len(nodes)) {
		return 0, "", malformed("to_node offset %d outside node array of length %d", offset, len(nodes))
	}
	if offset%stride != 0 {
		return 0, "", malformed("to_node offset %d is not a multiple of node stride %d", offset, stride)
	}
	rec := nodes[offset:]
	return rec[s.nodeID], stringAt(strs, rec[s.nodeName]), nil
}
