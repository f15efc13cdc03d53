package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heap-trace/pkg/config"
	"github.com/heap-trace/pkg/pprof"
	"github.com/heap-trace/pkg/telemetry"
	"github.com/heap-trace/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	pprofMode     string
	pprofDir      string
	pprofProfiles string

	logger            utils.Logger
	appConfig         *config.Config
	telemetryShutdown telemetry.ShutdownFunc
	profiler          *pprof.Collector
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "heap-trace",
	Short: "A V8 heap snapshot retained-size tracer",
	Long: `heap-trace decodes V8 heap snapshots and measures how many bytes a
module keeps alive.

It fetches the nightly snapshot archive, rebuilds the object graph from the
flat node and edge arrays, locates the Module objects matching a target
pattern, and sums the self sizes of everything reachable from them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		appConfig = cfg

		// Setup logger based on verbose flag and config
		logLevel := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, cmd.ErrOrStderr())
		utils.SetGlobalLogger(logger)

		shutdown, err := telemetry.Init(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		telemetryShutdown = shutdown

		return startProfiling(cmd, cfg)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		stopProfiling()
		if telemetryShutdown == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(ctx); err != nil {
			logger.Warn("Failed to flush telemetry: %v", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stopProfiling()
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&pprofMode, "pprof", "", "Profile heap-trace itself: file or http")
	rootCmd.PersistentFlags().StringVar(&pprofDir, "pprof-dir", "", "Directory for profiles in file mode")
	rootCmd.PersistentFlags().StringVar(&pprofProfiles, "pprof-profiles", "", "Comma-separated profiles to collect (cpu,heap,goroutine,block,mutex,allocs)")

	// Set dynamic example using actual binary name
	binName := BinName()
	rootCmd.Example = `  # Fetch the latest nightly snapshot and trace the configured target
  ` + binName + ` fetch --analyze -c ./configs/config.yaml

  # Measure what a module retains in a local snapshot
  ` + binName + ` analyze -i ./Heap.heapsnapshot -t 'node_modules/lodash'

  # List Module objects holding an edge to a path
  ` + binName + ` find -i ./Heap.heapsnapshot --name Module --type object --edge-label 'express'

  # Size the closure of specific node ids
  ` + binName + ` trace -i ./Heap.heapsnapshot --id 12345 --id 67890`
}

// startProfiling applies the --pprof flags over the pprof config section and
// starts the collector when profiling is enabled.
func startProfiling(cmd *cobra.Command, cfg *config.Config) error {
	pc := cfg.Pprof
	if pprofMode != "" {
		pc.Enabled = true
		pc.Mode = pprof.ModeType(pprofMode)
	}
	if pprofDir != "" {
		pc.OutputDir = pprofDir
	}
	if pprofProfiles != "" {
		types, err := pprof.ParseProfileTypes(pprofProfiles)
		if err != nil {
			return err
		}
		pc.Profiles = types
	}
	if !pc.Enabled {
		return nil
	}

	c, err := pprof.NewCollector(&pc, pprof.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := c.Start(cmd.Context()); err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}
	profiler = c
	return nil
}

func stopProfiling() {
	if profiler == nil {
		return
	}
	files, err := profiler.Stop()
	profiler = nil
	if err != nil {
		GetLogger().Warn("Failed to write profiles: %v", err)
	}
	for _, f := range files {
		GetLogger().Info("profile written: %s", f)
	}
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	if logger == nil {
		return utils.GetGlobalLogger()
	}
	return logger
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return appConfig
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}
