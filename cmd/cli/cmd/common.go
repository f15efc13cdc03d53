package cmd

import (
	"context"
	"fmt"

	"github.com/heap-trace/internal/analyzer"
	"github.com/heap-trace/internal/parser/heapsnapshot"
	"github.com/heap-trace/internal/repository"
	"github.com/heap-trace/internal/storage"
	"github.com/heap-trace/pkg/config"
	"github.com/heap-trace/pkg/model"
	"github.com/heap-trace/pkg/utils"
)

// analyzerSetup selects the optional collaborators of an analyzer.
type analyzerSetup struct {
	outputDir string
	mode      string
	publish   bool
	save      bool
}

// newAnalyzer builds a HeapSnapshotAnalyzer from the loaded configuration.
// The returned cleanup closes the report database when one was opened.
func newAnalyzer(cfg *config.Config, setup analyzerSetup) (*analyzer.HeapSnapshotAnalyzer, func(), error) {
	log := GetLogger()
	cleanup := func() {}

	base := analyzer.ConfigFromApp(cfg)
	base.Logger = log
	base.Verbose = verbose
	if setup.outputDir != "" {
		base.OutputDir = setup.outputDir
	}
	if setup.mode != "" {
		mode, err := analyzer.ParseMode(setup.mode)
		if err != nil {
			return nil, cleanup, fmt.Errorf("%w (valid: %s)", err, analyzer.ValidModes())
		}
		base.Mode = mode
	}

	var opts []analyzer.HeapSnapshotAnalyzerOption
	if setup.publish || cfg.Storage.Publish {
		store, err := storage.New(&cfg.Storage)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create storage: %w", err)
		}
		opts = append(opts, analyzer.WithStorage(store))
	}
	if setup.save || cfg.Database.Enabled {
		repos, err := repository.Open(&cfg.Database)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to open report database: %w", err)
		}
		cleanup = func() {
			if err := repos.Close(); err != nil {
				log.Warn("Failed to close report database: %v", err)
			}
		}
		opts = append(opts, analyzer.WithReportStore(repos.Report))
	}

	return analyzer.NewHeapSnapshotAnalyzer(base, opts...), cleanup, nil
}

// loadGraph reads and builds the graph of a snapshot file.
func loadGraph(ctx context.Context, path string) (*heapsnapshot.Graph, error) {
	log := GetLogger()
	timer := utils.NewTimer("load", utils.WithLogger(log))

	pt := timer.Start("parse")
	snap, err := heapsnapshot.LoadFile(path)
	pt.Stop()
	if err != nil {
		return nil, err
	}

	pt = timer.Start("process graph")
	g, err := heapsnapshot.Build(ctx, snap)
	pt.Stop()
	if err != nil {
		return nil, err
	}
	log.Info("processed graph nodes: %d, expect: %d", g.Len(), g.NodeCount())
	return g, nil
}

// printResults reports an analysis response through the logger.
func printResults(log utils.Logger, resp *model.AnalysisResponse) {
	log.Info("=== Analysis Results ===")
	log.Info("Task UUID:      %s", resp.TaskUUID)
	log.Info("Status:         %s", resp.Status)
	log.Info("Nodes:          %d (expected %d)", resp.NodeCount, resp.ExpectedNodes)
	log.Info("Edges:          %d", resp.EdgeCount)

	if resp.Target != "" {
		log.Info("Target:         %s", resp.Target)
	}
	if len(resp.Matches) > 0 {
		log.Info("")
		log.Info("=== Matched Nodes ===")
		for i, m := range resp.Matches {
			if i >= 10 {
				log.Info("  ... and %d more", len(resp.Matches)-10)
				break
			}
			log.Info("  @%-10d %-8s %-20s self %s, %d edges", m.ID, m.Type, m.Name, utils.FormatSize(m.SelfSize), m.EdgeCount)
		}
	}
	if resp.Traced {
		log.Info("")
		log.Info("=== Retained Size (%s) ===", resp.Mode)
		log.Info("  Size:    %s (%d bytes)", resp.RetainedSizeHuman, resp.RetainedSize)
		log.Info("  Visited: %d nodes", resp.Visited)
	}
	if len(resp.OutputFiles) > 0 {
		log.Info("")
		log.Info("=== Output Files ===")
		for _, f := range resp.OutputFiles {
			if f.StorageURL != "" {
				log.Info("  %-8s %s -> %s", f.Kind, f.LocalPath, f.StorageURL)
				continue
			}
			log.Info("  %-8s %s", f.Kind, f.LocalPath)
		}
	}
}
