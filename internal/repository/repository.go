// Package repository persists trace reports for the heap-trace service.
package repository

import (
	"context"

	"github.com/heap-trace/pkg/model"
)

// ReportRepository stores the outcome of each analysis run.
type ReportRepository interface {
	// SaveReport inserts report and sets its ID.
	SaveReport(ctx context.Context, report *model.TraceReport) error

	// GetReportByTaskUUID returns the report of one run.
	// A missing report yields an error matching errors.ErrNotFound.
	GetReportByTaskUUID(ctx context.Context, taskUUID string) (*model.TraceReport, error)

	// ListReports returns the latest reports, newest first.
	ListReports(ctx context.Context, limit int) ([]*model.TraceReport, error)
}
