package heapsnapshot

// Schema is the record layout of a snapshot, derived from its own metadata.
type Schema struct {
	// NodeFields and EdgeFields map a field name to its offset inside a record.
	NodeFields map[string]int
	EdgeFields map[string]int

	NodeFieldNames []string
	EdgeFieldNames []string

	// NodeTypes and EdgeTypes map a type index to its label.
	NodeTypes []string
	EdgeTypes []string

	nodeType, nodeName, nodeID, nodeSelfSize, nodeEdgeCount int
	edgeType, edgeNameOrIndex, edgeToNode                   int

	extraNodeFields  []string
	extraNodeOffsets []int
	extraNodeIndex   map[string]int
}

var (
	requiredNodeFields = []string{FieldType, FieldName, FieldID, FieldSelfSize, FieldEdgeCount}
	requiredEdgeFields = []string{FieldType, FieldNameOrIndex, FieldToNode}
)

// BuildSchema indexes the field name lists and keeps the type label tables.
// It fails when a well-known field is missing or a name is declared twice.
func BuildSchema(nodeFields, edgeFields, nodeTypes, edgeTypes []string) (*Schema, error) {
	nodeIdx, err := indexFields("node", nodeFields, requiredNodeFields)
	if err != nil {
		return nil, err
	}
	edgeIdx, err := indexFields("edge", edgeFields, requiredEdgeFields)
	if err != nil {
		return nil, err
	}

	s := &Schema{
		NodeFields:     nodeIdx,
		EdgeFields:     edgeIdx,
		NodeFieldNames: append([]string(nil), nodeFields...),
		EdgeFieldNames: append([]string(nil), edgeFields...),
		NodeTypes:      append([]string(nil), nodeTypes...),
		EdgeTypes:      append([]string(nil), edgeTypes...),

		nodeType:      nodeIdx[FieldType],
		nodeName:      nodeIdx[FieldName],
		nodeID:        nodeIdx[FieldID],
		nodeSelfSize:  nodeIdx[FieldSelfSize],
		nodeEdgeCount: nodeIdx[FieldEdgeCount],

		edgeType:        edgeIdx[FieldType],
		edgeNameOrIndex: edgeIdx[FieldNameOrIndex],
		edgeToNode:      edgeIdx[FieldToNode],

		extraNodeIndex: make(map[string]int),
	}

	for i, name := range nodeFields {
		if isWellKnownNodeField(name) {
			continue
		}
		s.extraNodeIndex[name] = len(s.extraNodeFields)
		s.extraNodeFields = append(s.extraNodeFields, name)
		s.extraNodeOffsets = append(s.extraNodeOffsets, i)
	}
	return s, nil
}

func indexFields(kind string, names, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for i, name := range names {
		if _, dup := idx[name]; dup {
			return nil, malformed("duplicate %s field %q", kind, name)
		}
		idx[name] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, malformed("%s_fields lacks required field %q", kind, name)
		}
	}
	return idx, nil
}

func isWellKnownNodeField(name string) bool {
	for _, f := range wellKnownNodeFields {
		if f == name {
			return true
		}
	}
	return false
}

// NodeFieldCount is the stride of the node array.
func (s *Schema) NodeFieldCount() int { return len(s.NodeFieldNames) }

// EdgeFieldCount is the stride of the edge array.
func (s *Schema) EdgeFieldCount() int { return len(s.EdgeFieldNames) }

// DecodeNode decodes the node record starting at offset.
// An unmapped type index is rendered as its integer and a name outside the
// string table decodes as "". The returned node has a nil edge list.
func (s *Schema) DecodeNode(nodes []int64, strs []string, offset int) (*Node, error) {
	if offset < 0 || offset+s.NodeFieldCount() > len(nodes) {
		return nil, malformed("node record at offset %d exceeds node array of length %d", offset, len(nodes))
	}
	rec := nodes[offset : offset+s.NodeFieldCount()]

	n := &Node{
		ID:        rec[s.nodeID],
		Type:      typeLabel(s.NodeTypes, rec[s.nodeType]),
		Name:      stringAt(strs, rec[s.nodeName]),
		SelfSize:  rec[s.nodeSelfSize],
		EdgeCount: rec[s.nodeEdgeCount],
		schema:    s,
	}
	if len(s.extraNodeOffsets) > 0 {
		n.extra = make([]int64, len(s.extraNodeOffsets))
		for i, off := range s.extraNodeOffsets {
			n.extra[i] = rec[off]
		}
	}
	return n, nil
}

// DecodeEdge decodes the raw edge record starting at offset.
func (s *Schema) DecodeEdge(edges []int64, offset int) (*RawEdge, error) {
	if offset < 0 || offset+s.EdgeFieldCount() > len(edges) {
		return nil, malformed("edge record at offset %d exceeds edge array of length %d", offset, len(edges))
	}
	rec := edges[offset : offset+s.EdgeFieldCount() : offset+s.EdgeFieldCount()]

	return &RawEdge{
		Offset:      offset,
		Type:        typeLabel(s.EdgeTypes, rec[s.edgeType]),
		NameOrIndex: rec[s.edgeNameOrIndex],
		ToNode:      rec[s.edgeToNode],
		Record:      rec,
	}, nil
}
