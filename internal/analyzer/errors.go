package analyzer

import "errors"

var (
	// ErrInvalidRequest is returned when a request is nil or names no input.
	ErrInvalidRequest = errors.New("invalid analysis request")

	// ErrParseError is returned when parsing the heap snapshot fails.
	ErrParseError = errors.New("failed to parse heap snapshot")

	// ErrEmptyData is returned when the heap snapshot is empty.
	ErrEmptyData = errors.New("heap snapshot is empty")

	// ErrNodeNotFound is returned when a requested root id is not in the graph.
	ErrNodeNotFound = errors.New("node not found")
)
