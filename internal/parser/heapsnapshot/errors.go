package heapsnapshot

import (
	apperrors "github.com/heap-trace/pkg/errors"
)

var (
	// ErrMalformedInput is returned when snapshot metadata or arrays cannot be decoded.
	ErrMalformedInput = apperrors.ErrMalformedInput

	// ErrGraphNotBuilt is returned when a graph operation runs before Build.
	ErrGraphNotBuilt = apperrors.New(apperrors.CodePrecondition, "graph not built: call Build first")

	// ErrMissingEdgeList is returned by HasEdge for a node that carries no edge list.
	ErrMissingEdgeList = apperrors.ErrMissingEdgeList
)

func malformed(format string, args ...interface{}) error {
	return apperrors.Newf(apperrors.CodeMalformedInput, "malformed heap snapshot: "+format, args...)
}

func malformedWrap(msg string, err error) error {
	return apperrors.Wrap(apperrors.CodeMalformedInput, "malformed heap snapshot: "+msg, err)
}
