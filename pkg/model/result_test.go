package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalysisResponse(t *testing.T) {
	req := NewAnalysisRequest("task-1", "heap.heapsnapshot", "out")
	req.Target = "left-pad"
	req.Mode = TraceModeExclusion

	resp := NewAnalysisResponse(req)
	assert.Equal(t, "task-1", resp.TaskUUID)
	assert.Equal(t, "heap.heapsnapshot", resp.InputFile)
	assert.Equal(t, "left-pad", resp.Target)
	assert.Equal(t, TraceModeExclusion, resp.Mode)
	assert.Equal(t, AnalysisStatusPending, resp.Status)
	assert.Nil(t, resp.FirstMatch())
}

func TestAnalysisResponse_AddOutput(t *testing.T) {
	resp := &AnalysisResponse{}
	resp.AddOutput("target", "out/target.json", "https://bucket/target.json")
	resp.AddOutput("summary", "out/summary.json", "")

	require.Len(t, resp.OutputFiles, 2)
	assert.Equal(t, "target", resp.OutputFiles[0].Kind)
	assert.Equal(t, "https://bucket/target.json", resp.OutputFiles[0].StorageURL)
	assert.Empty(t, resp.OutputFiles[1].StorageURL)
}

func TestAnalysisResponse_JSON(t *testing.T) {
	resp := &AnalysisResponse{
		TaskUUID:     "task-1",
		Mode:         TraceModeBFS,
		Status:       AnalysisStatusCompleted,
		Found:        true,
		Matches:      []NodeSummary{{ID: 7, Type: "object", Name: "Module", SelfSize: 10}},
		Traced:       true,
		RetainedSize: 15,
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "bfs", decoded["mode"])
	assert.Equal(t, float64(15), decoded["retained_size"])
	assert.NotContains(t, decoded, "error")
	assert.NotContains(t, decoded, "target")
}

func TestNewTraceReport(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("WithMatch", func(t *testing.T) {
		resp := &AnalysisResponse{
			TaskUUID:     "task-1",
			InputFile:    "heap.heapsnapshot",
			Target:       "left-pad",
			Mode:         TraceModeBFS,
			Status:       AnalysisStatusCompleted,
			Found:        true,
			Matches:      []NodeSummary{{ID: 7}, {ID: 9}},
			NodeCount:    2,
			EdgeCount:    1,
			RetainedSize: 15,
			Visited:      2,
			DurationMs:   1250,
		}

		report := NewTraceReport(resp, created)
		assert.Equal(t, "task-1", report.TaskUUID)
		assert.Equal(t, "heap.heapsnapshot", report.SnapshotFile)
		assert.Equal(t, 2, report.MatchCount)
		require.NotNil(t, report.RootID)
		assert.Equal(t, int64(7), *report.RootID)
		assert.Equal(t, int64(15), report.RetainedSize)
		assert.Equal(t, int64(1250), report.DurationMs)
		assert.Equal(t, created, report.CreateTime)
	})

	t.Run("NotFound", func(t *testing.T) {
		resp := &AnalysisResponse{TaskUUID: "task-2", Status: AnalysisStatusEmpty}
		report := NewTraceReport(resp, created)
		assert.False(t, report.Found)
		assert.Nil(t, report.RootID)
		assert.Equal(t, AnalysisStatusEmpty, report.Status)
	})
}
