package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/heap-trace/internal/parser/heapsnapshot"
	"github.com/heap-trace/internal/storage"
	"github.com/heap-trace/pkg/compression"
	apperrors "github.com/heap-trace/pkg/errors"
	"github.com/heap-trace/pkg/model"
	"github.com/heap-trace/pkg/utils"
)

// Timer phases, in pipeline order.
const (
	PhaseRead         = "read"
	PhaseParse        = "parse"
	PhaseProcessGraph = "process graph"
	PhaseFindNodes    = "find nodes"
	PhaseTraceNodes   = "trace nodes"
)

// ModuleName is the constructor name of CommonJS module records.
const ModuleName = "Module"

var tracer = otel.Tracer("heap-trace/analyzer")

// HeapSnapshotAnalyzer locates Module objects in a V8 heap snapshot and
// measures the size they retain.
type HeapSnapshotAnalyzer struct {
	*BaseAnalyzer
	storage storage.Storage
	reports ReportStore
	clock   utils.Clock
}

// HeapSnapshotAnalyzerOption configures the HeapSnapshotAnalyzer.
type HeapSnapshotAnalyzerOption func(*HeapSnapshotAnalyzer)

// WithStorage sets where published outputs are uploaded.
func WithStorage(s storage.Storage) HeapSnapshotAnalyzerOption {
	return func(a *HeapSnapshotAnalyzer) {
		a.storage = s
	}
}

// WithReportStore persists a report after every analysis.
func WithReportStore(r ReportStore) HeapSnapshotAnalyzerOption {
	return func(a *HeapSnapshotAnalyzer) {
		a.reports = r
	}
}

// WithClock sets the clock used for timings and report timestamps.
func WithClock(c utils.Clock) HeapSnapshotAnalyzerOption {
	return func(a *HeapSnapshotAnalyzer) {
		a.clock = c
	}
}

// NewHeapSnapshotAnalyzer creates a new heap snapshot analyzer.
func NewHeapSnapshotAnalyzer(config *BaseAnalyzerConfig, opts ...HeapSnapshotAnalyzerOption) *HeapSnapshotAnalyzer {
	a := &HeapSnapshotAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(config),
		clock:        utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the analyzer name.
func (a *HeapSnapshotAnalyzer) Name() string {
	return "heap_snapshot_analyzer"
}

// Analyze opens req.InputFile, decompressing gzip or zstd, and analyzes it.
func (a *HeapSnapshotAnalyzer) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResponse, error) {
	if req == nil || req.InputFile == "" {
		return nil, fmt.Errorf("%w: input file is required", ErrInvalidRequest)
	}

	file, err := os.Open(req.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	r, ct, err := compression.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseError, err)
	}
	defer r.Close()
	if ct != compression.TypeNone {
		a.Logger().Debug("input is %s compressed", ct)
	}

	return a.AnalyzeFromReader(ctx, req, r)
}

// AnalyzeFromReader runs the pipeline over snapshot JSON read from dataReader.
//
// A request without a target stops after the graph is built. A target that
// matches nothing yields a response with status empty and no error. Every
// finished analysis, failed ones included, is handed to the report store.
func (a *HeapSnapshotAnalyzer) AnalyzeFromReader(ctx context.Context, req *model.AnalysisRequest, dataReader io.Reader) (resp *model.AnalysisResponse, err error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if req.TaskUUID == "" {
		req.TaskUUID = uuid.NewString()
	}
	if req.Mode == "" {
		req.Mode = a.config.Mode
	}
	mode, err := model.ParseTraceMode(string(req.Mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Mode = mode

	var pattern *regexp.Regexp
	if req.Target != "" {
		if pattern, err = regexp.Compile(req.Target); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid target pattern", err)
		}
	}

	ctx, span := tracer.Start(ctx, "analyzer.Analyze")
	span.SetAttributes(
		attribute.String("task.uuid", req.TaskUUID),
		attribute.String("trace.mode", string(mode)),
	)
	defer span.End()

	logger := a.Logger().WithField("task", req.TaskUUID)
	timer := utils.NewTimer("heap snapshot", utils.WithLogger(logger), utils.WithClock(a.clock))

	resp = model.NewAnalysisResponse(req)
	resp.Status = model.AnalysisStatusRunning

	defer func() {
		resp.Timings = timer.ToMap()
		resp.DurationMs = timer.TotalDuration().Milliseconds()
		if err != nil {
			resp.Status = model.AnalysisStatusFailed
			resp.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		a.saveReport(ctx, logger, resp)
		if err != nil {
			resp = nil
		}
	}()

	outputDir, err := a.ResolveOutputDir(req)
	if err != nil {
		return resp, err
	}

	// read
	pt := timer.Start(PhaseRead)
	data, err := io.ReadAll(dataReader)
	pt.Stop()
	if err != nil {
		return resp, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp, ErrEmptyData
	}
	logger.Info("parse content: %d bytes", len(data))

	// parse
	pt = timer.Start(PhaseParse)
	snap, err := heapsnapshot.Load(bytes.NewReader(data))
	pt.Stop()
	if err != nil {
		return resp, fmt.Errorf("%w: %w", ErrParseError, err)
	}

	// process graph
	logger.Info("process graph nodes")
	var buildOpts []heapsnapshot.BuildOption
	if a.config.Verbose {
		buildOpts = append(buildOpts, heapsnapshot.WithBuildLogger(logger))
	}
	pt = timer.Start(PhaseProcessGraph)
	g, err := heapsnapshot.Build(ctx, snap, buildOpts...)
	pt.Stop()
	if err != nil {
		return resp, err
	}
	resp.NodeCount = g.Len()
	resp.EdgeCount = g.EdgeCount()
	resp.ExpectedNodes = int64(g.NodeCount())
	logger.Info("processed graph nodes: %d, expect: %d", g.Len(), g.NodeCount())

	if !req.HasTarget() {
		logger.Info("no target specified, skip.")
		resp.Status = model.AnalysisStatusCompleted
		return resp, a.writeSummary(resp, outputDir)
	}

	// find nodes
	pt = timer.Start(PhaseFindNodes)
	roots, err := a.findRoots(g, req, pattern, logger)
	if err != nil {
		pt.Stop()
		return resp, err
	}
	if len(roots) == 0 {
		pt.Stop()
		logger.Info("no node found.")
		resp.Status = model.AnalysisStatusEmpty
		return resp, a.writeSummary(resp, outputDir)
	}
	resp.Found = true
	resp.Matches = SummarizeAll(roots)

	logger.Info("writing target node to file")
	targetPath := filepath.Join(outputDir, TargetFileName)
	if err := a.WriteTarget(roots[0], targetPath); err != nil {
		pt.Stop()
		return resp, fmt.Errorf("failed to write target: %w", err)
	}
	url, err := a.publish(ctx, req, targetPath)
	if err != nil {
		pt.Stop()
		return resp, err
	}
	resp.AddOutput(OutputKindTarget, targetPath, url)
	pt.Stop()

	// trace nodes
	logger.Info("tracing %s nodes in graph", a.describeTarget(req))
	pt = timer.Start(PhaseTraceNodes)
	res, err := a.trace(ctx, g, mode, roots, logger)
	pt.Stop()
	if err != nil {
		return resp, err
	}

	resp.Traced = true
	resp.RetainedSize = res.Size
	resp.RetainedSizeHuman = utils.FormatSize(res.Size)
	resp.Visited = uint64(res.Visited)
	resp.Status = model.AnalysisStatusCompleted
	span.SetAttributes(attribute.Int64("trace.size", res.Size))
	logger.Info("%s nodes total size: %s", a.describeTarget(req), resp.RetainedSizeHuman)

	return resp, a.writeSummary(resp, outputDir)
}

// findRoots resolves explicit root ids, or locates Module objects whose
// edge labels match pattern.
func (a *HeapSnapshotAnalyzer) findRoots(g *heapsnapshot.Graph, req *model.AnalysisRequest, pattern *regexp.Regexp, logger utils.Logger) ([]*heapsnapshot.Node, error) {
	if len(req.RootIDs) > 0 {
		roots := make([]*heapsnapshot.Node, 0, len(req.RootIDs))
		for _, id := range req.RootIDs {
			n, ok := g.Node(id)
			if !ok {
				return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, id)
			}
			roots = append(roots, n)
		}
		return roots, nil
	}

	logger.Info("finding %s named %s", req.Target, ModuleName)
	modules, err := FindModules(g)
	if err != nil {
		return nil, err
	}
	logger.Info("found %s nodes: %d", ModuleName, len(modules))
	return FilterByEdgeLabel(modules, pattern)
}

func (a *HeapSnapshotAnalyzer) trace(ctx context.Context, g *heapsnapshot.Graph, mode model.TraceMode, roots []*heapsnapshot.Node, logger utils.Logger) (*heapsnapshot.TraceResult, error) {
	switch mode {
	case model.TraceModeExclusion:
		opts := []heapsnapshot.ExclusionOption{heapsnapshot.WithWorkers(a.config.Workers)}
		if a.config.Verbose {
			opts = append(opts, heapsnapshot.WithExclusionLogger(logger))
		}
		return heapsnapshot.NewExclusionSearch(g, opts...).Search(ctx, roots[0])
	default:
		opts := []heapsnapshot.TracerOption{heapsnapshot.WithProgressEvery(a.config.ProgressEvery)}
		if a.config.SearchLog {
			opts = append(opts, heapsnapshot.WithTracerLogger(logger))
		}
		return heapsnapshot.NewTracer(g, opts...).Trace(ctx, roots)
	}
}

// publish uploads the target file when the request asks for it and a
// storage backend is configured. It returns the object URL.
func (a *HeapSnapshotAnalyzer) publish(ctx context.Context, req *model.AnalysisRequest, localPath string) (string, error) {
	if !req.Publish {
		return "", nil
	}
	if a.storage == nil {
		a.Logger().Warn("publish requested but no storage is configured")
		return "", nil
	}
	key := path.Join(req.TaskUUID, filepath.Base(localPath))
	if err := a.storage.PutFile(ctx, key, localPath); err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", key, err)
	}
	return a.storage.URL(key), nil
}

func (a *HeapSnapshotAnalyzer) writeSummary(resp *model.AnalysisResponse, outputDir string) error {
	summaryPath := filepath.Join(outputDir, SummaryFileName)
	resp.AddOutput(OutputKindSummary, summaryPath, "")
	if err := a.WriteSummary(resp, summaryPath); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (a *HeapSnapshotAnalyzer) saveReport(ctx context.Context, logger utils.Logger, resp *model.AnalysisResponse) {
	if a.reports == nil {
		return
	}
	report := model.NewTraceReport(resp, a.clock.Now())
	if err := a.reports.SaveReport(ctx, report); err != nil {
		logger.Warn("failed to save report: %v", err)
		return
	}
	logger.Debug("saved report %d", report.ID)
}

func (a *HeapSnapshotAnalyzer) describeTarget(req *model.AnalysisRequest) string {
	if req.Target != "" {
		return req.Target
	}
	return fmt.Sprintf("%v", req.RootIDs)
}

// FindModules returns the objects named Module, in snapshot order.
func FindModules(g *heapsnapshot.Graph) ([]*heapsnapshot.Node, error) {
	nodes, err := g.FindNodes(heapsnapshot.FieldName, heapsnapshot.Exact(ModuleName))
	if err != nil {
		return nil, err
	}
	return heapsnapshot.FindNodesIn(nodes, heapsnapshot.FieldType, heapsnapshot.Exact("object")), nil
}

// FilterByEdgeLabel keeps the nodes holding an edge whose label matches pattern.
func FilterByEdgeLabel(nodes []*heapsnapshot.Node, pattern *regexp.Regexp) ([]*heapsnapshot.Node, error) {
	m := heapsnapshot.Pattern(pattern)
	var out []*heapsnapshot.Node
	for _, n := range nodes {
		ok, err := heapsnapshot.HasEdge(n, heapsnapshot.EdgePropLabel, m)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}
