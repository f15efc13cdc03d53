package repository

import (
	"time"

	"github.com/heap-trace/pkg/model"
)

// HeapTraceReport represents the heap_trace_report table.
type HeapTraceReport struct {
	ID           int64                `gorm:"column:id;primaryKey;autoIncrement"`
	TID          string               `gorm:"column:tid;type:varchar(64);uniqueIndex"`
	SnapshotFile string               `gorm:"column:snapshot_file;type:varchar(512)"`
	Target       string               `gorm:"column:target;type:varchar(512)"`
	Mode         string               `gorm:"column:mode;type:varchar(16)"`
	Status       model.AnalysisStatus `gorm:"column:status"`
	Found        bool                 `gorm:"column:found"`
	MatchCount   int                  `gorm:"column:match_count"`
	RootID       *int64               `gorm:"column:root_id"`
	NodeCount    int                  `gorm:"column:node_count"`
	EdgeCount    int                  `gorm:"column:edge_count"`
	RetainedSize int64                `gorm:"column:retained_size"`
	Visited      int64                `gorm:"column:visited"`
	DurationMs   int64                `gorm:"column:duration_ms"`
	ErrorMessage string               `gorm:"column:error_message;type:text"`
	CreateTime   time.Time            `gorm:"column:create_time;autoCreateTime;index"`
}

// TableName returns the table name for HeapTraceReport.
func (HeapTraceReport) TableName() string {
	return "heap_trace_report"
}

// ToModel converts HeapTraceReport to model.TraceReport.
func (r *HeapTraceReport) ToModel() *model.TraceReport {
	return &model.TraceReport{
		ID:           r.ID,
		TaskUUID:     r.TID,
		SnapshotFile: r.SnapshotFile,
		Target:       r.Target,
		Mode:         model.TraceMode(r.Mode),
		Status:       r.Status,
		Found:        r.Found,
		MatchCount:   r.MatchCount,
		RootID:       r.RootID,
		NodeCount:    r.NodeCount,
		EdgeCount:    r.EdgeCount,
		RetainedSize: r.RetainedSize,
		Visited:      uint64(r.Visited),
		DurationMs:   r.DurationMs,
		ErrorMessage: r.ErrorMessage,
		CreateTime:   r.CreateTime,
	}
}

// reportFromModel converts model.TraceReport to a table row.
func reportFromModel(r *model.TraceReport) *HeapTraceReport {
	return &HeapTraceReport{
		ID:           r.ID,
		TID:          r.TaskUUID,
		SnapshotFile: r.SnapshotFile,
		Target:       r.Target,
		Mode:         r.Mode.String(),
		Status:       r.Status,
		Found:        r.Found,
		MatchCount:   r.MatchCount,
		RootID:       r.RootID,
		NodeCount:    r.NodeCount,
		EdgeCount:    r.EdgeCount,
		RetainedSize: r.RetainedSize,
		Visited:      int64(r.Visited),
		DurationMs:   r.DurationMs,
		ErrorMessage: r.ErrorMessage,
		CreateTime:   r.CreateTime,
	}
}
