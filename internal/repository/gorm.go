package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/heap-trace/pkg/errors"
	"github.com/heap-trace/pkg/model"
)

// DefaultListLimit caps ListReports when no positive limit is given.
const DefaultListLimit = 50

// GormReportRepository implements ReportRepository using GORM.
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository.
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// SaveReport inserts report and copies the generated ID back.
func (r *GormReportRepository) SaveReport(ctx context.Context, report *model.TraceReport) error {
	if report.TaskUUID == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "report task uuid is required")
	}

	record := reportFromModel(report)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to save trace report", err)
	}

	report.ID = record.ID
	report.CreateTime = record.CreateTime
	return nil
}

// GetReportByTaskUUID retrieves the report for a task.
func (r *GormReportRepository) GetReportByTaskUUID(ctx context.Context, taskUUID string) (*model.TraceReport, error) {
	var record HeapTraceReport

	err := r.db.WithContext(ctx).Where("tid = ?", taskUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "report not found for task: %s", taskUUID)
		}
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to get trace report", err)
	}

	return record.ToModel(), nil
}

// ListReports returns up to limit reports, newest first.
func (r *GormReportRepository) ListReports(ctx context.Context, limit int) ([]*model.TraceReport, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var records []HeapTraceReport
	err := r.db.WithContext(ctx).
		Order("create_time DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list trace reports", err)
	}

	result := make([]*model.TraceReport, len(records))
	for i := range records {
		result[i] = records[i].ToModel()
	}
	return result, nil
}
