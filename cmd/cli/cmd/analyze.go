package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/heap-trace/internal/analyzer"
	"github.com/heap-trace/pkg/model"
)

var (
	// Analyze command flags
	inputFile string
	outputDir string
	target    string
	traceMode string
	taskUUID  string
	saveRun   bool
	publish   bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Measure the size retained by a module in a heap snapshot",
	Long: `Analyze a V8 heap snapshot and measure the bytes retained by a module.

The analyze command:
  - decodes the snapshot (plain, gzip or zstd) and rebuilds the object graph
  - finds objects named Module holding an edge whose label matches --target
  - writes the first match with its edges to target.json
  - traces the retained size from the matches and writes summary.json

Trace modes:
  - bfs      : breadth-first through allow-listed node types, from every match (default)
  - exclusion: concurrent search from the first match, skipping Module loader edges`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	binName := BinName()
	analyzeCmd.Example = `  # Trace lodash with the breadth-first tracer
  ` + binName + ` analyze -i ./Heap.heapsnapshot -t 'node_modules/lodash/'

  # Use the exclusion search and keep the report
  ` + binName + ` analyze -i ./Heap.heapsnapshot.gz -t 'express' --mode exclusion --save

  # Only rebuild the graph and print its counts
  ` + binName + ` analyze -i ./Heap.heapsnapshot`

	// Input/Output flags
	analyzeCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input heap snapshot file (required)")
	analyzeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to analysis.output_dir)")
	_ = analyzeCmd.MarkFlagRequired("input")

	// Analysis configuration flags
	analyzeCmd.Flags().StringVarP(&target, "target", "t", "", "Edge label pattern of the Module to trace (defaults to analysis.target)")
	analyzeCmd.Flags().StringVar(&traceMode, "mode", "", "Trace mode: "+analyzer.ValidModes())
	analyzeCmd.Flags().StringVar(&taskUUID, "uuid", "", "Task UUID (auto-generated if empty)")

	// Output sinks
	analyzeCmd.Flags().BoolVar(&saveRun, "save", false, "Persist the report to the configured database")
	analyzeCmd.Flags().BoolVar(&publish, "publish", false, "Upload target.json to the configured storage")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputFile)
	}

	cfg := GetConfig()
	if target == "" {
		target = cfg.Analysis.Target
	}
	return analyzeFile(cmd, inputFile, target, nil)
}

// analyzeFile runs the analyzer over path and prints the results.
func analyzeFile(cmd *cobra.Command, path, pattern string, rootIDs []int64) error {
	log := GetLogger()
	cfg := GetConfig()

	dir := outputDir
	if dir == "" {
		dir = cfg.Analysis.OutputDir
	}

	ana, cleanup, err := newAnalyzer(cfg, analyzerSetup{
		outputDir: dir,
		mode:      traceMode,
		publish:   publish,
		save:      saveRun,
	})
	if err != nil {
		return err
	}
	defer cleanup()

	req := model.NewAnalysisRequest(taskUUID, path, dir)
	req.Target = pattern
	req.RootIDs = rootIDs
	req.Publish = publish || cfg.Storage.Publish
	req.Mode = ""

	log.Info("=== Heap Trace ===")
	log.Info("Input file:  %s", path)
	log.Info("Output dir:  %s", dir)
	log.Info("Using analyzer: %s", ana.Name())
	log.Info("")

	resp, err := ana.Analyze(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	printResults(log, resp)
	if resp.Status == model.AnalysisStatusEmpty {
		log.Warn("No Module matched %q", pattern)
	}
	return nil
}
