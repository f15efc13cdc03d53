package heapsnapshot

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Well-known field names. Every other field is resolved through the schema.
const (
	FieldType        = "type"
	FieldName        = "name"
	FieldID          = "id"
	FieldSelfSize    = "self_size"
	FieldEdgeCount   = "edge_count"
	FieldNameOrIndex = "name_or_index"
	FieldToNode      = "to_node"
)

// Edge-level property names accepted by Edge.Field.
const (
	EdgePropID    = "id"
	EdgePropFrom  = "from"
	EdgePropTo    = "to"
	EdgePropType  = "type"
	EdgePropValue = "value"
	EdgePropLabel = "label"
)

// Edge type labels that address a positional slot rather than a named property.
const (
	EdgeTypeElement = "element"
	EdgeTypeHidden  = "hidden"
)

// Snapshot is the raw snapshot envelope: metadata plus the three flat arrays.
type Snapshot struct {
	NodeFields []string
	EdgeFields []string
	// NodeTypes and EdgeTypes are the label tables found at meta.*_types[0].
	NodeTypes []string
	EdgeTypes []string
	NodeCount int
	EdgeCount int
	Nodes     []int64
	Edges     []int64
	Strings   []string
}

// Node is one decoded heap object.
type Node struct {
	ID        int64
	Type      string
	Name      string
	SelfSize  int64
	EdgeCount int64
	// Edges is nil for a standalone decode and non-nil once the node is part of a Graph.
	Edges []*Edge

	schema *Schema
	// extra holds the remaining declared fields, ordered as schema.extraNodeFields.
	extra []int64
}

// FieldNames returns the declared node field names in snapshot order.
func (n *Node) FieldNames() []string {
	if n.schema == nil {
		return append([]string(nil), wellKnownNodeFields...)
	}
	return append([]string(nil), n.schema.NodeFieldNames...)
}

// Field returns the decoded value of a node field by name.
// type and name are strings; every other field is an int64.
func (n *Node) Field(name string) (interface{}, bool) {
	switch name {
	case FieldID:
		return n.ID, true
	case FieldType:
		return n.Type, true
	case FieldName:
		return n.Name, true
	case FieldSelfSize:
		return n.SelfSize, true
	case FieldEdgeCount:
		return n.EdgeCount, true
	}
	if n.schema == nil {
		return nil, false
	}
	i, ok := n.schema.extraNodeIndex[name]
	if !ok || i >= len(n.extra) {
		return nil, false
	}
	return n.extra[i], true
}

// Extra returns the declared fields beyond the well-known ones, such as
// trace_node_id or detachedness.
func (n *Node) Extra() map[string]int64 {
	out := make(map[string]int64, len(n.extra))
	if n.schema == nil {
		return out
	}
	for i, v := range n.extra {
		out[n.schema.extraNodeFields[i]] = v
	}
	return out
}

var wellKnownNodeFields = []string{FieldType, FieldName, FieldID, FieldSelfSize, FieldEdgeCount}

// MarshalJSON writes the node as a flat object with its declared fields in
// snapshot order followed by "edges".
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, name := range n.FieldNames() {
		v, _ := n.Field(name)
		key, _ := json.Marshal(name)
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		buf.WriteByte(',')
	}
	edges, err := json.Marshal(n.Edges)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"edges":`)
	buf.Write(edges)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Edge is an outbound reference between two nodes. From and To are node ids.
type Edge struct {
	// ID is the edge record's offset in the flat edge array.
	ID    int64  `json:"id"`
	From  int64  `json:"from"`
	To    int64  `json:"to"`
	Type  string `json:"type"`
	Value string `json:"value"`
	// Label is "<value> :: <target name> @<target id>".
	Label string `json:"label"`
}

// Field returns an edge property by name.
func (e *Edge) Field(name string) (interface{}, bool) {
	switch name {
	case EdgePropID:
		return e.ID, true
	case EdgePropFrom:
		return e.From, true
	case EdgePropTo:
		return e.To, true
	case EdgePropType:
		return e.Type, true
	case EdgePropValue:
		return e.Value, true
	case EdgePropLabel:
		return e.Label, true
	}
	return nil, false
}

// RawEdge is a decoded edge record before value and label composition.
type RawEdge struct {
	Offset      int
	Type        string
	NameOrIndex int64
	// ToNode is an offset into the node array, not a node id.
	ToNode int64
	// Record is the full edge record, aliasing the snapshot's edge array.
	Record []int64
}

// Graph is the node arena keyed by id. It is not modified after Build.
type Graph struct {
	Schema *Schema
	Nodes  map[int64]*Node

	order         []int64
	expectedNodes int
	expectedEdges int
}

// Len returns the number of distinct node ids in the graph.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Nodes)
}

// Node returns the node with the given id.
func (g *Graph) Node(id int64) (*Node, bool) {
	if g == nil {
		return nil, false
	}
	n, ok := g.Nodes[id]
	return n, ok
}

// Each visits nodes in snapshot order until fn returns false.
func (g *Graph) Each(fn func(*Node) bool) {
	if g == nil {
		return
	}
	for _, id := range g.order {
		if !fn(g.Nodes[id]) {
			return
		}
	}
}

// NodeCount is the node_count declared by the snapshot.
func (g *Graph) NodeCount() int {
	if g == nil {
		return 0
	}
	return g.expectedNodes
}

// EdgeCount is the edge_count declared by the snapshot.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return g.expectedEdges
}

func typeLabel(table []string, raw int64) string {
	if raw >= 0 && raw < int64(len(table)) && table[raw] != "" {
		return table[raw]
	}
	return strconv.FormatInt(raw, 10)
}

func stringAt(strs []string, idx int64) string {
	if idx >= 0 && idx < int64(len(strs)) {
		return strs[idx]
	}
	return ""
}
