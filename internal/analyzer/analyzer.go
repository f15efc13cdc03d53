// Package analyzer runs the end-to-end heap snapshot pipeline: load, build
// the graph, locate the target and measure what it retains.
package analyzer

import (
	"context"
	"io"

	"github.com/heap-trace/pkg/model"
)

// Analyzer is the interface for heap snapshot analyzers.
type Analyzer interface {
	// Analyze performs the analysis on the given request.
	Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResponse, error)

	// AnalyzeFromReader performs the analysis using a reader.
	AnalyzeFromReader(ctx context.Context, req *model.AnalysisRequest, dataReader io.Reader) (*model.AnalysisResponse, error)

	// Name returns the name of this analyzer.
	Name() string
}

// ReportStore persists the outcome of an analysis.
// repository.ReportRepository satisfies it.
type ReportStore interface {
	SaveReport(ctx context.Context, report *model.TraceReport) error
}
