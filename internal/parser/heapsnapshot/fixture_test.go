package heapsnapshot

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testNodeFields = []string{"type", "name", "id", "self_size", "edge_count", "trace_node_id", "detachedness"}
	testEdgeFields = []string{"type", "name_or_index", "to_node"}
	testNodeTypes  = []string{"hidden", "array", "string", "object", "code", "closure", "regexp", "number",
		"native", "synthetic", "concatenated string", "sliced string", "symbol", "bigint", "object shape"}
	testEdgeTypes = []string{"context", "element", "property", "internal", "hidden", "shortcut", "weak"}
)

type fxNode struct {
	typ   string
	name  string
	id    int64
	size  int64
	edges []fxEdge
}

// fxEdge points at the target's position in the fixture slice.
// name is used for named edge types, index for element and hidden edges.
type fxEdge struct {
	typ   string
	name  string
	index int64
	to    int
}

func indexOf(table []string, label string) int64 {
	for i, l := range table {
		if l == label {
			return int64(i)
		}
	}
	panic("unknown label " + label)
}

// newSnapshot encodes fixture nodes into the flat V8 layout.
func newSnapshot(nodes []fxNode) *Snapshot {
	s := &Snapshot{
		NodeFields: testNodeFields,
		EdgeFields: testEdgeFields,
		NodeTypes:  testNodeTypes,
		EdgeTypes:  testEdgeTypes,
		NodeCount:  len(nodes),
		Strings:    []string{""},
	}
	strIdx := map[string]int64{"": 0}
	intern := func(str string) int64 {
		if i, ok := strIdx[str]; ok {
			return i
		}
		strIdx[str] = int64(len(s.Strings))
		s.Strings = append(s.Strings, str)
		return strIdx[str]
	}

	stride := int64(len(testNodeFields))
	for i, n := range nodes {
		s.Nodes = append(s.Nodes,
			indexOf(testNodeTypes, n.typ), intern(n.name), n.id, n.size, int64(len(n.edges)), int64(i), 0)
		for _, e := range n.edges {
			nameOrIndex := e.index
			if e.typ != EdgeTypeElement && e.typ != EdgeTypeHidden {
				nameOrIndex = intern(e.name)
			}
			s.Edges = append(s.Edges, indexOf(testEdgeTypes, e.typ), nameOrIndex, int64(e.to)*stride)
			s.EdgeCount++
		}
	}
	return s
}

// snapshotJSON renders a Snapshot in the on-disk V8 envelope.
func snapshotJSON(t *testing.T, s *Snapshot) []byte {
	t.Helper()
	doc := map[string]interface{}{
		"snapshot": map[string]interface{}{
			"meta": map[string]interface{}{
				"node_fields": s.NodeFields,
				"node_types":  []interface{}{s.NodeTypes, "string", "number", "number", "number", "number", "number"},
				"edge_fields": s.EdgeFields,
				"edge_types":  []interface{}{s.EdgeTypes, "string_or_number", "node"},
			},
			"node_count": s.NodeCount,
			"edge_count": s.EdgeCount,
		},
		"nodes":   s.Nodes,
		"edges":   s.Edges,
		"strings": s.Strings,
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func mustBuild(t *testing.T, nodes []fxNode) *Graph {
	t.Helper()
	g, err := Build(context.Background(), newSnapshot(nodes))
	require.NoError(t, err)
	return g
}

// moduleScenario is a Module object holding a path string.
func moduleScenario() []fxNode {
	return []fxNode{
		{typ: "object", name: "Module", id: 1, size: 10, edges: []fxEdge{{typ: "internal", name: "path", to: 1}}},
		{typ: "string", name: "/srv/app/index.js", id: 3, size: 5},
	}
}

func nodeByID(t *testing.T, g *Graph, id int64) *Node {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %d not in graph", id)
	return n
}
