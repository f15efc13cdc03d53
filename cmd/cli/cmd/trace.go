package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var traceIDs []int64

// traceCmd represents the trace command
var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Measure the size retained by specific node ids",
	Long: `Trace the retained size from explicit node ids instead of a Module
search. Ids are the "id" values printed by find. The bfs mode traces from
all ids, the exclusion mode from the first one.`,
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)

	traceCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input heap snapshot file (required)")
	traceCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to analysis.output_dir)")
	traceCmd.Flags().Int64SliceVar(&traceIDs, "id", nil, "Root node id, repeatable (required)")
	traceCmd.Flags().StringVar(&traceMode, "mode", "", "Trace mode: bfs or exclusion")
	traceCmd.Flags().BoolVar(&saveRun, "save", false, "Persist the report to the configured database")
	_ = traceCmd.MarkFlagRequired("input")
	_ = traceCmd.MarkFlagRequired("id")
}

func runTrace(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputFile)
	}
	return analyzeFile(cmd, inputFile, "", traceIDs)
}
