package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTraceMode(t *testing.T) {
	tests := []struct {
		input    string
		expected TraceMode
		wantErr  bool
	}{
		{"", TraceModeBFS, false},
		{"bfs", TraceModeBFS, false},
		{"exclusion", TraceModeExclusion, false},
		{"dominator", "", true},
		{"BFS", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseTraceMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}

func TestAnalysisStatus_String(t *testing.T) {
	tests := []struct {
		status   AnalysisStatus
		expected string
	}{
		{AnalysisStatusPending, "pending"},
		{AnalysisStatusRunning, "running"},
		{AnalysisStatusCompleted, "completed"},
		{AnalysisStatusFailed, "failed"},
		{AnalysisStatusEmpty, "empty"},
		{AnalysisStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestNewAnalysisRequest(t *testing.T) {
	req := NewAnalysisRequest("task-1", "/tmp/heap.heapsnapshot", "/tmp/out")

	assert.Equal(t, "task-1", req.TaskUUID)
	assert.Equal(t, "/tmp/heap.heapsnapshot", req.InputFile)
	assert.Equal(t, "/tmp/out", req.OutputDir)
	assert.Equal(t, TraceModeBFS, req.Mode)
	assert.False(t, req.CreateTime.IsZero())
	assert.False(t, req.HasTarget())

	req.Target = "lodash"
	assert.True(t, req.HasTarget())

	req.Target = ""
	req.RootIDs = []int64{42}
	assert.True(t, req.HasTarget())
}
