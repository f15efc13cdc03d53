// Package model defines the core data structures used throughout the application.
package model

import (
	"fmt"
	"time"
)

// TraceMode selects the retained-size algorithm.
type TraceMode string

const (
	TraceModeBFS       TraceMode = "bfs"       // allow-listed breadth-first reachability
	TraceModeExclusion TraceMode = "exclusion" // concurrent search with edge exclusion rules
)

// String returns the string representation of TraceMode.
func (m TraceMode) String() string {
	return string(m)
}

// ParseTraceMode validates s as a trace mode. Empty means bfs.
func ParseTraceMode(s string) (TraceMode, error) {
	switch TraceMode(s) {
	case "", TraceModeBFS:
		return TraceModeBFS, nil
	case TraceModeExclusion:
		return TraceModeExclusion, nil
	default:
		return "", fmt.Errorf("unknown trace mode %q", s)
	}
}

// AnalysisStatus represents the analysis status.
type AnalysisStatus int

const (
	AnalysisStatusPending   AnalysisStatus = 0 // Not started
	AnalysisStatusRunning   AnalysisStatus = 1 // Running
	AnalysisStatusCompleted AnalysisStatus = 2 // Completed
	AnalysisStatusFailed    AnalysisStatus = 3 // Failed
	AnalysisStatusEmpty     AnalysisStatus = 5 // No node matched the target
)

// String returns the string representation of AnalysisStatus.
func (s AnalysisStatus) String() string {
	switch s {
	case AnalysisStatusPending:
		return "pending"
	case AnalysisStatusRunning:
		return "running"
	case AnalysisStatusCompleted:
		return "completed"
	case AnalysisStatusFailed:
		return "failed"
	case AnalysisStatusEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// AnalysisRequest represents a request to analyze one heap snapshot.
type AnalysisRequest struct {
	TaskUUID  string
	InputFile string
	OutputDir string

	// Target is a regular expression matched against the edge labels of
	// Module objects. Empty skips the search and trace.
	Target string
	Mode   TraceMode

	// RootIDs bypasses the target search and traces from these node ids.
	RootIDs []int64

	// Publish uploads target.json to the configured storage.
	Publish bool

	CreateTime time.Time
}

// NewAnalysisRequest creates a request with the default mode.
func NewAnalysisRequest(taskUUID, inputFile, outputDir string) *AnalysisRequest {
	return &AnalysisRequest{
		TaskUUID:   taskUUID,
		InputFile:  inputFile,
		OutputDir:  outputDir,
		Mode:       TraceModeBFS,
		CreateTime: time.Now(),
	}
}

// HasTarget reports whether the request asks for a trace.
func (r *AnalysisRequest) HasTarget() bool {
	return r.Target != "" || len(r.RootIDs) > 0
}
