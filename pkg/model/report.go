package model

import "time"

// TraceReport is the persisted outcome of one analysis.
type TraceReport struct {
	ID           int64
	TaskUUID     string
	SnapshotFile string
	Target       string
	Mode         TraceMode
	Status       AnalysisStatus
	Found        bool
	MatchCount   int
	RootID       *int64
	NodeCount    int
	EdgeCount    int
	RetainedSize int64
	Visited      uint64
	DurationMs   int64
	ErrorMessage string
	CreateTime   time.Time
}

// NewTraceReport builds a report from a finished response.
func NewTraceReport(resp *AnalysisResponse, createTime time.Time) *TraceReport {
	report := &TraceReport{
		TaskUUID:     resp.TaskUUID,
		SnapshotFile: resp.InputFile,
		Target:       resp.Target,
		Mode:         resp.Mode,
		Status:       resp.Status,
		Found:        resp.Found,
		MatchCount:   len(resp.Matches),
		NodeCount:    resp.NodeCount,
		EdgeCount:    resp.EdgeCount,
		RetainedSize: resp.RetainedSize,
		Visited:      resp.Visited,
		DurationMs:   resp.DurationMs,
		ErrorMessage: resp.Error,
		CreateTime:   createTime,
	}
	if first := resp.FirstMatch(); first != nil {
		id := first.ID
		report.RootID = &id
	}
	return report
}
