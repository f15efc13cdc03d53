package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/heap-trace/internal/parser/heapsnapshot"
	"github.com/heap-trace/pkg/config"
	"github.com/heap-trace/pkg/model"
	"github.com/heap-trace/pkg/utils"
	"github.com/heap-trace/pkg/writer"
)

// Output file names written into the task directory.
const (
	TargetFileName  = "target.json"
	SummaryFileName = "summary.json"
)

// Output kinds recorded on the response.
const (
	OutputKindTarget  = "target"
	OutputKindSummary = "summary"
)

// targetIndent matches the layout of the target dumps consumed downstream.
const targetIndent = 4

// BaseAnalyzerConfig holds configuration for the base analyzer.
type BaseAnalyzerConfig struct {
	// OutputDir is the directory for output files. A request without its own
	// output directory writes to OutputDir/<task uuid>.
	OutputDir string

	// Mode is used when the request leaves its mode empty.
	Mode model.TraceMode

	// Workers bounds the exclusion search fan-out.
	Workers int

	// ProgressEvery is the number of counted nodes between BFS progress lines.
	ProgressEvery int

	// SearchLog enables the BFS progress lines.
	SearchLog bool

	// Logger is used for pipeline logging. If nil, the global logger is used.
	Logger utils.Logger

	// Verbose enables decoder and exclusion search diagnostics.
	// This is typically enabled via the -v command line flag.
	Verbose bool
}

// DefaultBaseAnalyzerConfig returns default configuration.
func DefaultBaseAnalyzerConfig() *BaseAnalyzerConfig {
	return &BaseAnalyzerConfig{
		OutputDir:     "",
		Mode:          model.TraceModeBFS,
		Workers:       runtime.NumCPU(),
		ProgressEvery: heapsnapshot.DefaultProgressEvery,
	}
}

// ConfigFromApp maps the application configuration onto an analyzer config.
func ConfigFromApp(cfg *config.Config) *BaseAnalyzerConfig {
	c := DefaultBaseAnalyzerConfig()
	if cfg == nil {
		return c
	}
	c.OutputDir = cfg.Analysis.OutputDir
	if mode, err := model.ParseTraceMode(cfg.Analysis.Mode); err == nil {
		c.Mode = mode
	}
	if cfg.Analysis.Workers > 0 {
		c.Workers = cfg.Analysis.Workers
	}
	c.ProgressEvery = cfg.Analysis.ProgressEvery
	c.SearchLog = cfg.Analysis.SearchLog
	return c
}

// BaseAnalyzer provides output handling shared by analyzers.
type BaseAnalyzer struct {
	config *BaseAnalyzerConfig
}

// NewBaseAnalyzer creates a new base analyzer.
func NewBaseAnalyzer(config *BaseAnalyzerConfig) *BaseAnalyzer {
	if config == nil {
		config = DefaultBaseAnalyzerConfig()
	}
	return &BaseAnalyzer{config: config}
}

// Logger returns the configured logger or the global one.
func (a *BaseAnalyzer) Logger() utils.Logger {
	if a.config.Logger != nil {
		return a.config.Logger
	}
	return utils.GetGlobalLogger()
}

// WriteTarget writes node, with its edges, as 4-space indented JSON.
func (a *BaseAnalyzer) WriteTarget(node *heapsnapshot.Node, outputPath string) error {
	return writer.NewIndentedJSONWriter[*heapsnapshot.Node](targetIndent).WriteToFile(node, outputPath)
}

// WriteSummary writes the analysis response as pretty JSON.
func (a *BaseAnalyzer) WriteSummary(resp *model.AnalysisResponse, outputPath string) error {
	return writer.NewPrettyJSONWriter[*model.AnalysisResponse]().WriteToFile(resp, outputPath)
}

// ResolveOutputDir returns the request's output directory, or a per-task
// directory under the configured one, and makes sure it exists.
func (a *BaseAnalyzer) ResolveOutputDir(req *model.AnalysisRequest) (string, error) {
	if req.OutputDir != "" {
		if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		return req.OutputDir, nil
	}
	return a.EnsureOutputDir(req.TaskUUID)
}

// EnsureOutputDir ensures the task output directory exists.
func (a *BaseAnalyzer) EnsureOutputDir(taskUUID string) (string, error) {
	outputDir := a.config.OutputDir
	if outputDir == "" {
		outputDir = os.TempDir()
	}

	taskDir := filepath.Join(outputDir, taskUUID)
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	return taskDir, nil
}

// CleanupOutputDir removes the output directory.
func (a *BaseAnalyzer) CleanupOutputDir(taskDir string) error {
	return os.RemoveAll(taskDir)
}

// Summarize returns the compact view of n.
func Summarize(n *heapsnapshot.Node) model.NodeSummary {
	return model.NodeSummary{
		ID:        n.ID,
		Type:      n.Type,
		Name:      n.Name,
		SelfSize:  n.SelfSize,
		EdgeCount: n.EdgeCount,
	}
}

// SummarizeAll maps Summarize over nodes.
func SummarizeAll(nodes []*heapsnapshot.Node) []model.NodeSummary {
	out := make([]model.NodeSummary, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Summarize(n))
	}
	return out
}
