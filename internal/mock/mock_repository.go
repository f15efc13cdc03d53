package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/heap-trace/pkg/model"
)

// MockReportRepository is a mock implementation of the ReportRepository interface.
type MockReportRepository struct {
	mock.Mock
}

// SaveReport mocks the SaveReport method.
func (m *MockReportRepository) SaveReport(ctx context.Context, report *model.TraceReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

// GetReportByTaskUUID mocks the GetReportByTaskUUID method.
func (m *MockReportRepository) GetReportByTaskUUID(ctx context.Context, taskUUID string) (*model.TraceReport, error) {
	args := m.Called(ctx, taskUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TraceReport), args.Error(1)
}

// ListReports mocks the ListReports method.
func (m *MockReportRepository) ListReports(ctx context.Context, limit int) ([]*model.TraceReport, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TraceReport), args.Error(1)
}

// ExpectSaveReport expects a report with the given task UUID and status.
func (m *MockReportRepository) ExpectSaveReport(taskUUID string, status model.AnalysisStatus, err error) *mock.Call {
	return m.On("SaveReport", mock.Anything, mock.MatchedBy(func(r *model.TraceReport) bool {
		return r.TaskUUID == taskUUID && r.Status == status
	})).Return(err)
}

// ExpectListReports sets up an expectation for ListReports.
func (m *MockReportRepository) ExpectListReports(limit int, reports []*model.TraceReport, err error) *mock.Call {
	return m.On("ListReports", mock.Anything, limit).Return(reports, err)
}
