package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/heap-trace/internal/repository"
	"github.com/heap-trace/pkg/model"
	"github.com/heap-trace/pkg/utils"
	"github.com/heap-trace/pkg/writer"
)

var (
	reportTask  string
	reportLimit int
	reportJSON  bool
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show persisted trace reports",
	Long: `List the most recent trace reports saved with --save, or show the
report of one task with --task.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportTask, "task", "", "Task UUID to show")
	reportCmd.Flags().IntVar(&reportLimit, "limit", repository.DefaultListLimit, "Number of reports to list")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print reports as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	repos, err := repository.Open(&GetConfig().Database)
	if err != nil {
		return fmt.Errorf("failed to open report database: %w", err)
	}
	defer repos.Close()

	var reports []*model.TraceReport
	if reportTask != "" {
		r, err := repos.Report.GetReportByTaskUUID(cmd.Context(), reportTask)
		if err != nil {
			return err
		}
		reports = []*model.TraceReport{r}
	} else {
		if reports, err = repos.Report.ListReports(cmd.Context(), reportLimit); err != nil {
			return err
		}
	}

	if reportJSON {
		return writer.NewPrettyJSONWriter[[]*model.TraceReport]().Write(reports, cmd.OutOrStdout())
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTASK\tSTATUS\tMODE\tTARGET\tROOT\tRETAINED")
	for _, r := range reports {
		root := "-"
		if r.RootID != nil {
			root = fmt.Sprintf("@%d", *r.RootID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreateTime.Format(time.DateTime), r.TaskUUID, r.Status, r.Mode,
			truncateString(r.Target, 40), root, utils.FormatSize(r.RetainedSize))
	}
	return tw.Flush()
}
