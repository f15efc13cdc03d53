// Package config provides configuration management for heap-trace.
package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/heap-trace/pkg/pprof"
)

// Trace modes.
const (
	ModeBFS       = "bfs"
	ModeExclusion = "exclusion"
)

// Snapshot sources.
const (
	SourceHTTP    = "http"
	SourceStorage = "storage"
)

// Config holds all configuration for the application.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Source   SourceConfig   `mapstructure:"source"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Pprof    pprof.Config   `mapstructure:"pprof"`
}

// AnalysisConfig controls how a snapshot is searched and traced.
type AnalysisConfig struct {
	DownloadPath string `mapstructure:"download_path"`
	OutputDir    string `mapstructure:"output_dir"`
	// Target is a regular expression matched against Module edge labels.
	// Empty disables target search and tracing.
	Target        string `mapstructure:"target"`
	Mode          string `mapstructure:"mode"` // bfs or exclusion
	SearchLog     bool   `mapstructure:"search_log"`
	ProgressEvery int    `mapstructure:"progress_every"`
	Workers       int    `mapstructure:"workers"`
}

// SourceConfig describes where daily snapshot archives are published.
type SourceConfig struct {
	Type          string        `mapstructure:"type"` // http or storage
	SnapshotURL   string        `mapstructure:"snapshot_url"`
	ArchivePrefix string        `mapstructure:"archive_prefix"`
	ArchiveSuffix string        `mapstructure:"archive_suffix"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"` // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"` // e.g., "https" or "http"
	Endpoint  string `mapstructure:"endpoint"`
	LocalPath string `mapstructure:"local_path"`
	// Publish uploads target.json to storage after an analysis.
	Publish bool `mapstructure:"publish"`
}

// DatabaseConfig holds report database configuration.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // sqlite, postgres or mysql
	Path     string `mapstructure:"path"` // sqlite file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from configPath, or from config.yaml in the
// standard locations when configPath is empty. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/heap-trace")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return unmarshal(v)
}

// Default returns the configuration built from defaults and environment only.
func Default() (*Config, error) {
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HEAP_TRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short names kept for existing deployment scripts.
	_ = v.BindEnv("source.snapshot_url", "SNAPSHOT_URL", "HEAP_TRACE_SOURCE_SNAPSHOT_URL")
	_ = v.BindEnv("analysis.download_path", "DOWNLOAD_PATH", "HEAP_TRACE_ANALYSIS_DOWNLOAD_PATH")
	_ = v.BindEnv("analysis.target", "TARGET", "HEAP_TRACE_ANALYSIS_TARGET")
	_ = v.BindEnv("analysis.search_log", "LOG", "HEAP_TRACE_ANALYSIS_SEARCH_LOG")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.download_path", "./download/")
	v.SetDefault("analysis.output_dir", "./output")
	v.SetDefault("analysis.target", "")
	v.SetDefault("analysis.mode", ModeBFS)
	v.SetDefault("analysis.search_log", false)
	v.SetDefault("analysis.progress_every", 1000)
	v.SetDefault("analysis.workers", runtime.NumCPU())

	v.SetDefault("source.type", SourceHTTP)
	v.SetDefault("source.snapshot_url", "")
	v.SetDefault("source.archive_prefix", "heapsnapshots-")
	v.SetDefault("source.archive_suffix", ".tar.gz")
	v.SetDefault("source.timeout", 10*time.Minute)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")
	v.SetDefault("storage.scheme", "https")
	v.SetDefault("storage.publish", false)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./heap-trace.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("log.level", "info")

	pp := pprof.DefaultConfig()
	v.SetDefault("pprof.enabled", pp.Enabled)
	v.SetDefault("pprof.mode", string(pp.Mode))
	v.SetDefault("pprof.profiles", []string{"cpu", "heap", "allocs"})
	v.SetDefault("pprof.output_dir", pp.OutputDir)
	v.SetDefault("pprof.addr", pp.Addr)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Analysis.Mode {
	case ModeBFS, ModeExclusion:
	default:
		return fmt.Errorf("unsupported analysis mode: %s", c.Analysis.Mode)
	}
	if c.Analysis.Target != "" {
		if _, err := regexp.Compile(c.Analysis.Target); err != nil {
			return fmt.Errorf("invalid analysis target: %w", err)
		}
	}
	if c.Analysis.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must not be negative")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}

	switch c.Source.Type {
	case SourceHTTP, SourceStorage:
	default:
		return fmt.Errorf("unsupported source type: %s", c.Source.Type)
	}

	if c.Database.Enabled {
		switch c.Database.Type {
		case "sqlite":
			if c.Database.Path == "" {
				return fmt.Errorf("database path is required for sqlite")
			}
		case "postgres", "mysql":
			if c.Database.Host == "" {
				return fmt.Errorf("database host is required")
			}
		default:
			return fmt.Errorf("unsupported database type: %s", c.Database.Type)
		}
	}

	if err := c.Pprof.Validate(); err != nil {
		return fmt.Errorf("invalid pprof config: %w", err)
	}

	// Storage config validation is delegated to the storage package.
	return nil
}

// TargetPattern compiles the analysis target. It returns nil when no target is set.
func (c *Config) TargetPattern() *regexp.Regexp {
	if c.Analysis.Target == "" {
		return nil
	}
	return regexp.MustCompile(c.Analysis.Target)
}

// EnsureDirs creates the download and output directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Analysis.DownloadPath, c.Analysis.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
