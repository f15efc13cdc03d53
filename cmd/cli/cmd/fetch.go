package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heap-trace/internal/fetcher"
	"github.com/heap-trace/pkg/utils"
)

var analyzeAfterFetch bool

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and extract the latest snapshot archive",
	Long: `Fetch today's snapshot archive, or yesterday's when today's is not
published yet, from source.snapshot_url or the configured storage. The
archive is extracted into analysis.download_path and removed, and the path
of the extracted snapshot is printed.

With --analyze the snapshot is analyzed right away using analysis.target.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&analyzeAfterFetch, "analyze", false, "Analyze the fetched snapshot")
	fetchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for --analyze (defaults to analysis.output_dir)")
	fetchCmd.Flags().StringVar(&traceMode, "mode", "", "Trace mode for --analyze")
	fetchCmd.Flags().BoolVar(&saveRun, "save", false, "Persist the report of --analyze")
	fetchCmd.Flags().BoolVar(&publish, "publish", false, "Upload target.json of --analyze")
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	cfg := GetConfig()

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	timer := utils.NewTimer("fetch", utils.WithLogger(log))
	f, err := fetcher.NewFromConfig(cfg, fetcher.WithLogger(log), fetcher.WithTimer(timer))
	if err != nil {
		return err
	}

	file, err := f.FetchLatest(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	log.Info("reading file: %s", file)
	fmt.Fprintln(cmd.OutOrStdout(), file)

	if !analyzeAfterFetch {
		return nil
	}
	return analyzeFile(cmd, file, cfg.Analysis.Target, nil)
}
