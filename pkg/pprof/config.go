// Package pprof profiles heap-trace itself while it decodes and traces a
// snapshot. Large snapshots make the decoder and the graph builder the
// dominant cost of a run, and this package captures where that time and
// memory goes.
//
// Two modes are supported:
//   - file: a CPU profile covers the whole run, and the remaining profiles
//     are written once when the collector stops.
//   - http: the net/http/pprof endpoints are served for the lifetime of
//     the run.
package pprof

import (
	"fmt"
	"strings"
)

// ModeType defines the pprof collection mode.
type ModeType string

const (
	ModeFile ModeType = "file"
	ModeHTTP ModeType = "http"
)

// ProfileType defines the type of profile to collect.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

// AllProfileTypes returns all supported profile types.
func AllProfileTypes() []ProfileType {
	return []ProfileType{
		ProfileCPU,
		ProfileHeap,
		ProfileGoroutine,
		ProfileBlock,
		ProfileMutex,
		ProfileAllocs,
	}
}

// DefaultProfileTypes returns the profiles collected when none are named.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap, ProfileAllocs}
}

// ParseProfileTypes parses a comma-separated list of profile types.
// An empty string yields DefaultProfileTypes.
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultProfileTypes(), nil
	}

	valid := make(map[ProfileType]bool)
	for _, pt := range AllProfileTypes() {
		valid[pt] = true
	}

	parts := strings.Split(s, ",")
	types := make([]ProfileType, 0, len(parts))
	seen := make(map[ProfileType]bool)
	for _, p := range parts {
		pt := ProfileType(strings.TrimSpace(strings.ToLower(p)))
		if !valid[pt] {
			return nil, fmt.Errorf("unknown profile type: %q", p)
		}
		if seen[pt] {
			continue
		}
		seen[pt] = true
		types = append(types, pt)
	}
	return types, nil
}

// Config holds the self-profiling configuration.
type Config struct {
	Enabled bool     `mapstructure:"enabled"`
	Mode    ModeType `mapstructure:"mode"`

	// Profiles lists the profile types to collect.
	Profiles []ProfileType `mapstructure:"profiles"`

	// OutputDir receives the profile files in file mode.
	OutputDir string `mapstructure:"output_dir"`

	// Addr is the listen address in http mode.
	Addr string `mapstructure:"addr"`
}

// DefaultConfig returns a disabled file-mode configuration.
func DefaultConfig() *Config {
	return &Config{
		Mode:      ModeFile,
		Profiles:  DefaultProfileTypes(),
		OutputDir: "./pprof",
		Addr:      "localhost:6060",
	}
}

// Validate validates the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Mode {
	case ModeFile:
		if len(c.Profiles) == 0 {
			return fmt.Errorf("at least one profile type must be specified")
		}
		if c.OutputDir == "" {
			return fmt.Errorf("output directory is required")
		}
	case ModeHTTP:
		if c.Addr == "" {
			return fmt.Errorf("HTTP address is required")
		}
	default:
		return fmt.Errorf("invalid pprof mode: %q (valid: file, http)", c.Mode)
	}
	return nil
}

// HasProfile checks if a profile type is enabled.
func (c *Config) HasProfile(pt ProfileType) bool {
	for _, p := range c.Profiles {
		if p == pt {
			return true
		}
	}
	return false
}
