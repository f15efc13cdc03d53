package heapsnapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/heap-trace/pkg/errors"
	"github.com/heap-trace/pkg/utils"
)

func sampleNodes() []fxNode {
	return []fxNode{
		{typ: "synthetic", name: "(GC roots)", id: 1, size: 0, edges: []fxEdge{
			{typ: "element", index: 0, to: 1},
			{typ: "hidden", index: 7, to: 2},
		}},
		{typ: "object", name: "Module", id: 3, size: 40, edges: []fxEdge{
			{typ: "property", name: "exports", to: 2},
			{typ: "internal", name: "path", to: 3},
			{typ: "property", name: "__proto__", to: 2},
		}},
		{typ: "object", name: "Object", id: 5, size: 24},
		{typ: "string", name: "/srv/app", id: 7, size: 16},
	}
}

func TestBuild_EdgesAndLabels(t *testing.T) {
	g := mustBuild(t, sampleNodes())

	require.Equal(t, 4, g.Len())
	root := nodeByID(t, g, 1)
	require.Len(t, root.Edges, 2)

	assert.Equal(t, &Edge{ID: 0, From: 1, To: 3, Type: "element", Value: "[0]", Label: "[0] :: Module @3"}, root.Edges[0])
	assert.Equal(t, &Edge{ID: 3, From: 1, To: 5, Type: "hidden", Value: "[7]", Label: "[7] :: Object @5"}, root.Edges[1])

	module := nodeByID(t, g, 3)
	require.Len(t, module.Edges, 3)
	assert.Equal(t, "exports :: Object @5", module.Edges[0].Label)
	assert.Equal(t, int64(6), module.Edges[0].ID)
	assert.Equal(t, "path", module.Edges[1].Value)
	assert.Equal(t, "internal", module.Edges[1].Type)
	assert.Equal(t, int64(7), module.Edges[1].To)
	assert.Equal(t, int64(12), module.Edges[2].ID)

	leaf := nodeByID(t, g, 5)
	assert.NotNil(t, leaf.Edges)
	assert.Empty(t, leaf.Edges)
}

func TestBuild_EdgeCountSumMatchesEdgeArray(t *testing.T) {
	snap := newSnapshot(sampleNodes())
	g, err := Build(context.Background(), snap)
	require.NoError(t, err)

	var sum int64
	g.Each(func(n *Node) bool {
		sum += n.EdgeCount
		return true
	})
	assert.Equal(t, int64(len(snap.Edges)/len(snap.EdgeFields)), sum)
	assert.Equal(t, snap.NodeCount, g.NodeCount())
	assert.Equal(t, snap.EdgeCount, g.EdgeCount())
}

func TestBuild_SnapshotOrder(t *testing.T) {
	g := mustBuild(t, sampleNodes())

	var ids []int64
	g.Each(func(n *Node) bool {
		ids = append(ids, n.ID)
		return true
	})
	assert.Equal(t, []int64{1, 3, 5, 7}, ids)
}

func TestBuild_DuplicateIDLastWriteWins(t *testing.T) {
	nodes := []fxNode{
		{typ: "object", name: "First", id: 9, size: 1},
		{typ: "object", name: "Second", id: 9, size: 2},
	}
	buf := &bytes.Buffer{}
	g, err := Build(context.Background(), newSnapshot(nodes), WithBuildLogger(utils.NewDefaultLogger(utils.LevelDebug, buf)))
	require.NoError(t, err)

	assert.Equal(t, 1, g.Len())
	assert.Equal(t, "Second", nodeByID(t, g, 9).Name)
	assert.Contains(t, buf.String(), "node id 9")
}

func TestBuild_Malformed(t *testing.T) {
	t.Run("EdgeCountExceedsEdges", func(t *testing.T) {
		snap := newSnapshot(sampleNodes())
		snap.Nodes[4] = 5 // root claims five edges
		_, err := Build(context.Background(), snap)
		assert.True(t, apperrors.IsMalformedInput(err))
	})

	t.Run("EdgeCountHuge", func(t *testing.T) {
		snap := newSnapshot(sampleNodes())
		snap.Nodes[4] = 1 << 50
		_, err := Build(context.Background(), snap)
		require.Error(t, err)
		assert.True(t, apperrors.IsMalformedInput(err))
		assert.Contains(t, err.Error(), "edge records remain")
	})

	t.Run("NodeCountOverflow", func(t *testing.T) {
		snap := newSnapshot(sampleNodes())
		snap.NodeCount = int(uint64(math.MaxUint64)/uint64(len(snap.NodeFields)) + 1)
		_, err := Build(context.Background(), snap)
		require.Error(t, err)
		assert.True(t, apperrors.IsMalformedInput(err))
	})

	t.Run("EdgeCountShortOfEdges", func(t *testing.T) {
		snap := newSnapshot(sampleNodes())
		snap.Nodes[4] = 1
		_, err := Build(context.Background(), snap)
		assert.True(t, apperrors.IsMalformedInput(err))
	})

	t.Run("ToNodeOutOfRange", func(t *testing.T) {
		snap := newSnapshot(sampleNodes())
		snap.Edges[2] = int64(len(snap.Nodes))
		_, err := Build(context.Background(), snap)
		assert.True(t, apperrors.IsMalformedInput(err))
	})

	t.Run("ToNodeUnaligned", func(t *testing.T) {
		snap := newSnapshot(sampleNodes())
		snap.Edges[2] = 1
		_, err := Build(context.Background(), snap)
		require.Error(t, err)
		assert.True(t, apperrors.IsMalformedInput(err))
		assert.Contains(t, err.Error(), "not a multiple of node stride")
	})

	t.Run("MissingRequiredField", func(t *testing.T) {
		snap := newSnapshot(sampleNodes())
		snap.EdgeFields = []string{"type", "name_or_index", "target"}
		_, err := Build(context.Background(), snap)
		assert.True(t, apperrors.IsMalformedInput(err))
	})
}

func TestBuild_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, newSnapshot(sampleNodes()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_FromJSON(t *testing.T) {
	snap, err := Load(bytes.NewReader(snapshotJSON(t, newSnapshot(sampleNodes()))))
	require.NoError(t, err)

	g, err := Build(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, "path :: /srv/app @7", nodeByID(t, g, 3).Edges[1].Label)
}

func TestNode_MarshalJSON(t *testing.T) {
	g := mustBuild(t, moduleScenario())

	data, err := json.Marshal(nodeByID(t, g, 1))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "object",
		"name": "Module",
		"id": 1,
		"self_size": 10,
		"edge_count": 1,
		"trace_node_id": 0,
		"detachedness": 0,
		"edges": [{"id": 0, "from": 1, "to": 3, "type": "internal", "value": "path", "label": "path :: /srv/app/index.js @3"}]
	}`, string(data))
}
