package heapsnapshot

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/heap-trace/pkg/compression"
)

var (
	pathNodeFields = jp.MustParseString("$.snapshot.meta.node_fields")
	pathEdgeFields = jp.MustParseString("$.snapshot.meta.edge_fields")
	pathNodeTypes  = jp.MustParseString("$.snapshot.meta.node_types[0]")
	pathEdgeTypes  = jp.MustParseString("$.snapshot.meta.edge_types[0]")
	pathNodeCount  = jp.MustParseString("$.snapshot.node_count")
	pathEdgeCount  = jp.MustParseString("$.snapshot.edge_count")
	pathNodes      = jp.MustParseString("$.nodes")
	pathEdges      = jp.MustParseString("$.edges")
	pathStrings    = jp.MustParseString("$.strings")
)

// LoadFile reads a snapshot file, transparently decompressing gzip or zstd.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	r, _, err := compression.NewReader(f)
	if err != nil {
		return nil, malformedWrap("decompress", err)
	}
	defer r.Close()

	return Load(r)
}

// Load parses snapshot JSON from r and validates it against its declared counts.
func Load(r io.Reader) (*Snapshot, error) {
	data, err := oj.Load(r)
	if err != nil {
		return nil, malformedWrap("parse json", err)
	}
	return FromValue(data)
}

// FromValue extracts a Snapshot from an already parsed JSON value.
func FromValue(data interface{}) (*Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.NodeFields, err = stringsAt(data, pathNodeFields); err != nil {
		return nil, err
	}
	if s.EdgeFields, err = stringsAt(data, pathEdgeFields); err != nil {
		return nil, err
	}
	if s.NodeTypes, err = stringsAt(data, pathNodeTypes); err != nil {
		return nil, err
	}
	if s.EdgeTypes, err = stringsAt(data, pathEdgeTypes); err != nil {
		return nil, err
	}
	if s.NodeCount, err = intAt(data, pathNodeCount); err != nil {
		return nil, err
	}
	if s.EdgeCount, err = intAt(data, pathEdgeCount); err != nil {
		return nil, err
	}
	if s.Nodes, err = intsAt(data, pathNodes); err != nil {
		return nil, err
	}
	if s.Edges, err = intsAt(data, pathEdges); err != nil {
		return nil, err
	}
	if s.Strings, err = stringsAt(data, pathStrings); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the arrays hold at least the declared number of records.
func (s *Snapshot) Validate() error {
	if len(s.NodeFields) == 0 || len(s.EdgeFields) == 0 {
		return malformed("empty node_fields or edge_fields")
	}
	if s.NodeCount < 0 || s.EdgeCount < 0 {
		return malformed("negative node_count %d or edge_count %d", s.NodeCount, s.EdgeCount)
	}
	if s.NodeCount > len(s.Nodes)/len(s.NodeFields) {
		return malformed("nodes has %d values, too few for node_count %d", len(s.Nodes), s.NodeCount)
	}
	if s.EdgeCount > len(s.Edges)/len(s.EdgeFields) {
		return malformed("edges has %d values, too few for edge_count %d", len(s.Edges), s.EdgeCount)
	}
	return nil
}

func first(data interface{}, x jp.Expr) (interface{}, error) {
	v := x.First(data)
	if v == nil {
		return nil, malformed("missing %s", x.String())
	}
	return v, nil
}

func stringsAt(data interface{}, x jp.Expr) ([]string, error) {
	v, err := first(data, x)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, malformed("%s is %T, want array", x.String(), v)
	}
	out := make([]string, len(list))
	for i, item := range list {
		// meta.*_types may mix nested arrays with plain labels; only strings label a type.
		if str, ok := item.(string); ok {
			out[i] = str
		}
	}
	return out, nil
}

func intAt(data interface{}, x jp.Expr) (int, error) {
	v, err := first(data, x)
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, malformed("%s is %v, want integer", x.String(), v)
	}
	return int(n), nil
}

func intsAt(data interface{}, x jp.Expr) ([]int64, error) {
	v, err := first(data, x)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, malformed("%s is %T, want array", x.String(), v)
	}
	out := make([]int64, len(list))
	for i, item := range list {
		n, ok := toInt64(item)
		if !ok {
			return nil, malformed("%s[%d] is %v, want integer", x.String(), i, item)
		}
		out[i] = n
	}
	return out, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
