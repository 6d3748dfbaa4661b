package glbuild

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedType is returned when a node kind does not accept the type of a value,
	// i.e: Voronoise noise over a 3D position.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrUnsupportedDimensionality is returned for axis swizzles, selectors
	// and distance metrics that are not implemented for the given dimensions.
	ErrUnsupportedDimensionality = errors.New("unsupported dimensionality")
	// ErrMalformedGraph is returned when the node graph is not a DAG or references missing nodes.
	ErrMalformedGraph = errors.New("malformed graph")
)

// GraphError describes a malformed graph. It wraps [ErrMalformedGraph].
type GraphError struct {
	// Node is the offending node.
	Node NodeID
	// Trail lists nodes visited before the problem was found.
	Trail  []NodeID
	Reason string
}

func (e *GraphError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMalformedGraph.Error())
	b.WriteString(": node ")
	b.WriteString(strconv.FormatUint(uint64(e.Node), 10))
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if len(e.Trail) > 0 {
		b.WriteString(" (trail")
		for _, id := range e.Trail {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatUint(uint64(id), 10))
		}
		b.WriteByte(')')
	}
	return b.String()
}

func (e *GraphError) Unwrap() error { return ErrMalformedGraph }

// unboundReference panics. Lowering a node always lowers its children first so
// reaching this is a bug in the lowering of a node kind.
func unboundReference(scope string, id NodeID) {
	panic("glbuild: unbound reference to node " + strconv.FormatUint(uint64(id), 10) + " in scope " + scope)
}
