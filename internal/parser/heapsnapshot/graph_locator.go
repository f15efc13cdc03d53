package heapsnapshot

import (
	"fmt"
	"regexp"
)

// Matcher decides whether a field value satisfies a lookup.
type Matcher interface {
	Match(v interface{}) bool
	String() string
}

type exactMatcher struct {
	want interface{}
}

// Exact matches values equal to want. Integer kinds compare as int64.
func Exact(want interface{}) Matcher {
	return exactMatcher{want: normalize(want)}
}

func (m exactMatcher) Match(v interface{}) bool {
	return normalize(v) == m.want
}

func (m exactMatcher) String() string {
	return fmt.Sprintf("== %v", m.want)
}

type patternMatcher struct {
	re *regexp.Regexp
}

// Pattern matches values whose string form matches re.
func Pattern(re *regexp.Regexp) Matcher {
	return patternMatcher{re: re}
}

// MustPattern compiles expr and returns a Pattern matcher. It panics on an invalid expression.
func MustPattern(expr string) Matcher {
	return Pattern(regexp.MustCompile(expr))
}

func (m patternMatcher) Match(v interface{}) bool {
	switch s := v.(type) {
	case string:
		return m.re.MatchString(s)
	case nil:
		return false
	default:
		return m.re.MatchString(fmt.Sprint(s))
	}
}

func (m patternMatcher) String() string {
	return fmt.Sprintf("=~ /%s/", m.re.String())
}

func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return v
	}
}

// FindNodes returns every node whose property satisfies m, in snapshot order.
func (g *Graph) FindNodes(property string, m Matcher) ([]*Node, error) {
	if g == nil || g.Nodes == nil {
		return nil, ErrGraphNotBuilt
	}
	var out []*Node
	g.Each(func(n *Node) bool {
		if v, ok := n.Field(property); ok && m.Match(v) {
			out = append(out, n)
		}
		return true
	})
	return out, nil
}

// FindNodesIn narrows a previous result set. Chaining calls is a logical AND.
func FindNodesIn(nodes []*Node, property string, m Matcher) []*Node {
	var out []*Node
	for _, n := range nodes {
		if v, ok := n.Field(property); ok && m.Match(v) {
			out = append(out, n)
		}
	}
	return out
}

// HasEdge reports whether any of the node's edges has a property satisfying m.
// A node without an edge list is an error; an empty edge list is not.
func HasEdge(node *Node, property string, m Matcher) (bool, error) {
	if node == nil || node.Edges == nil {
		return false, ErrMissingEdgeList
	}
	for _, e := range node.Edges {
		if v, ok := e.Field(property); ok && m.Match(v) {
			return true, nil
		}
	}
	return false, nil
}
