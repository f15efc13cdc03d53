package cmd

import (
	"fmt"
	"regexp"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/heap-trace/internal/analyzer"
	"github.com/heap-trace/internal/parser/heapsnapshot"
	"github.com/heap-trace/pkg/model"
	"github.com/heap-trace/pkg/utils"
	"github.com/heap-trace/pkg/writer"
)

var (
	findName      string
	findType      string
	findEdgeLabel string
	findLimit     int
	findJSON      bool
	findOut       string
)

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find",
	Short: "List nodes matching name, type and edge label filters",
	Long: `Find nodes in a heap snapshot. Filters combine with AND:

  --name        exact node name
  --type        exact node type (object, string, closure, ...)
  --edge-label  regular expression matched against the node's edge labels,
                "<edge name or index> :: <target name> @<target id>"

At least one filter is required.`,
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input heap snapshot file (required)")
	_ = findCmd.MarkFlagRequired("input")
	findCmd.Flags().StringVar(&findName, "name", "", "Exact node name")
	findCmd.Flags().StringVar(&findType, "type", "", "Exact node type")
	findCmd.Flags().StringVar(&findEdgeLabel, "edge-label", "", "Edge label regular expression")
	findCmd.Flags().IntVar(&findLimit, "limit", 20, "Maximum number of nodes to print (0 for all)")
	findCmd.Flags().BoolVar(&findJSON, "json", false, "Print node summaries as JSON")
	findCmd.Flags().StringVar(&findOut, "out", "", "Write the matched nodes with their edges to a file (.gz to compress)")
}

// nodeFilter is the parsed form of the find flags.
type nodeFilter struct {
	name      string
	typ       string
	edgeLabel *regexp.Regexp
}

func newNodeFilter(name, typ, edgeLabel string) (*nodeFilter, error) {
	f := &nodeFilter{name: name, typ: typ}
	if edgeLabel != "" {
		re, err := regexp.Compile(edgeLabel)
		if err != nil {
			return nil, fmt.Errorf("invalid edge label pattern: %w", err)
		}
		f.edgeLabel = re
	}
	if f.name == "" && f.typ == "" && f.edgeLabel == nil {
		return nil, fmt.Errorf("at least one of --name, --type or --edge-label is required")
	}
	return f, nil
}

// apply narrows the graph one filter at a time.
func (f *nodeFilter) apply(g *heapsnapshot.Graph) ([]*heapsnapshot.Node, error) {
	var (
		nodes []*heapsnapshot.Node
		err   error
	)
	switch {
	case f.name != "":
		nodes, err = g.FindNodes(heapsnapshot.FieldName, heapsnapshot.Exact(f.name))
	case f.typ != "":
		nodes, err = g.FindNodes(heapsnapshot.FieldType, heapsnapshot.Exact(f.typ))
	default:
		nodes, err = g.FindNodes(heapsnapshot.FieldID, matchAll{})
	}
	if err != nil {
		return nil, err
	}

	if f.name != "" && f.typ != "" {
		nodes = heapsnapshot.FindNodesIn(nodes, heapsnapshot.FieldType, heapsnapshot.Exact(f.typ))
	}
	if f.edgeLabel != nil {
		return analyzer.FilterByEdgeLabel(nodes, f.edgeLabel)
	}
	return nodes, nil
}

type matchAll struct{}

func (matchAll) Match(interface{}) bool { return true }
func (matchAll) String() string         { return "*" }

func runFind(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	filter, err := newNodeFilter(findName, findType, findEdgeLabel)
	if err != nil {
		return err
	}

	g, err := loadGraph(cmd.Context(), inputFile)
	if err != nil {
		return err
	}

	nodes, err := filter.apply(g)
	if err != nil {
		return err
	}
	log.Info("found %d nodes", len(nodes))

	if findOut != "" {
		if err := writer.WriteAuto(nodes, findOut, 4); err != nil {
			return fmt.Errorf("failed to write %s: %w", findOut, err)
		}
		log.Info("wrote %d nodes to %s", len(nodes), findOut)
	}

	shown := nodes
	if findLimit > 0 && len(shown) > findLimit {
		shown = shown[:findLimit]
	}
	summaries := analyzer.SummarizeAll(shown)

	if findJSON {
		return writer.NewPrettyJSONWriter[[]model.NodeSummary]().Write(summaries, cmd.OutOrStdout())
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tSELF SIZE\tEDGES")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", s.ID, s.Type, truncateString(s.Name, 60), utils.FormatSize(s.SelfSize), s.EdgeCount)
	}
	if len(nodes) > len(shown) {
		fmt.Fprintf(tw, "... %d more\t\t\t\t\n", len(nodes)-len(shown))
	}
	return tw.Flush()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
