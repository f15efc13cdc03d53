package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/heap-trace/pkg/errors"
	"github.com/heap-trace/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "reports.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&HeapTraceReport{}))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func sampleReport(tid string, created time.Time) *model.TraceReport {
	root := int64(7)
	return &model.TraceReport{
		TaskUUID:     tid,
		SnapshotFile: "download/heap.heapsnapshot",
		Target:       "left-pad",
		Mode:         model.TraceModeBFS,
		Status:       model.AnalysisStatusCompleted,
		Found:        true,
		MatchCount:   1,
		RootID:       &root,
		NodeCount:    2,
		EdgeCount:    1,
		RetainedSize: 15,
		Visited:      2,
		DurationMs:   42,
		CreateTime:   created,
	}
}

func TestGormReportRepository_SaveReport(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	t.Run("SaveReport_Success", func(t *testing.T) {
		report := sampleReport("report-uuid-1", time.Time{})
		require.NoError(t, repo.SaveReport(ctx, report))
		assert.NotZero(t, report.ID)
		assert.False(t, report.CreateTime.IsZero())
	})

	t.Run("SaveReport_DuplicateTID", func(t *testing.T) {
		err := repo.SaveReport(ctx, sampleReport("report-uuid-1", time.Time{}))
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetErrorCode(err))
	})

	t.Run("SaveReport_MissingTID", func(t *testing.T) {
		err := repo.SaveReport(ctx, &model.TraceReport{})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetErrorCode(err))
	})
}

func TestGormReportRepository_GetReportByTaskUUID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	t.Run("GetReport_NotFound", func(t *testing.T) {
		report, err := repo.GetReportByTaskUUID(ctx, "nonexistent")
		assert.Error(t, err)
		assert.Nil(t, report)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Contains(t, err.Error(), "report not found")
	})

	t.Run("GetReport_Success", func(t *testing.T) {
		saved := sampleReport("report-uuid-2", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
		require.NoError(t, repo.SaveReport(ctx, saved))

		report, err := repo.GetReportByTaskUUID(ctx, "report-uuid-2")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, report.ID)
		assert.Equal(t, model.TraceModeBFS, report.Mode)
		assert.Equal(t, model.AnalysisStatusCompleted, report.Status)
		assert.Equal(t, int64(15), report.RetainedSize)
		assert.Equal(t, uint64(2), report.Visited)
		require.NotNil(t, report.RootID)
		assert.Equal(t, int64(7), *report.RootID)
	})

	t.Run("GetReport_NilRoot", func(t *testing.T) {
		saved := &model.TraceReport{TaskUUID: "report-uuid-3", Status: model.AnalysisStatusEmpty}
		require.NoError(t, repo.SaveReport(ctx, saved))

		report, err := repo.GetReportByTaskUUID(ctx, "report-uuid-3")
		require.NoError(t, err)
		assert.Nil(t, report.RootID)
		assert.False(t, report.Found)
	})
}

func TestGormReportRepository_ListReports(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReportRepository(db)
	ctx := context.Background()

	t.Run("ListReports_Empty", func(t *testing.T) {
		reports, err := repo.ListReports(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, reports)
	})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		report := sampleReport(fmt.Sprintf("list-uuid-%d", i), base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.SaveReport(ctx, report))
	}

	t.Run("ListReports_NewestFirst", func(t *testing.T) {
		reports, err := repo.ListReports(ctx, 3)
		require.NoError(t, err)
		require.Len(t, reports, 3)
		assert.Equal(t, "list-uuid-4", reports[0].TaskUUID)
		assert.Equal(t, "list-uuid-3", reports[1].TaskUUID)
		assert.Equal(t, "list-uuid-2", reports[2].TaskUUID)
	})

	t.Run("ListReports_DefaultLimit", func(t *testing.T) {
		reports, err := repo.ListReports(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, reports, 5)
	})
}
