package analyzer

import (
	"strings"

	"github.com/heap-trace/pkg/model"
)

// ModeInfo describes a trace mode for help and validation.
type ModeInfo struct {
	Mode        model.TraceMode
	Description string
	Roots       string
}

// modeRegistry maps mode names to their metadata.
var modeRegistry = map[model.TraceMode]*ModeInfo{
	model.TraceModeBFS: {
		Mode:        model.TraceModeBFS,
		Description: "Breadth-first reachability through allow-listed node types",
		Roots:       "every matched node",
	},
	model.TraceModeExclusion: {
		Mode:        model.TraceModeExclusion,
		Description: "Concurrent search skipping Module loader bookkeeping edges",
		Roots:       "first matched node",
	},
}

// ParseMode parses a mode string, case-insensitively. Empty means bfs.
func ParseMode(s string) (model.TraceMode, error) {
	return model.ParseTraceMode(strings.ToLower(strings.TrimSpace(s)))
}

// GetModeInfo returns the metadata for a mode.
func GetModeInfo(mode model.TraceMode) (*ModeInfo, bool) {
	info, ok := modeRegistry[mode]
	return info, ok
}

// ValidModes returns a comma-separated list of valid mode names.
func ValidModes() string {
	modes := make([]string, 0, len(modeRegistry))
	for _, info := range AllModes() {
		modes = append(modes, string(info.Mode))
	}
	return strings.Join(modes, ", ")
}

// AllModes returns all registered mode information in a stable order.
func AllModes() []*ModeInfo {
	order := []model.TraceMode{model.TraceModeBFS, model.TraceModeExclusion}
	result := make([]*ModeInfo, 0, len(order))
	for _, mode := range order {
		if info, ok := modeRegistry[mode]; ok {
			result = append(result, info)
		}
	}
	return result
}
