package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is a single timed step of a run.
type Phase struct {
	Name      string
	Parent    string
	Level     int
	StartTime time.Time
	Duration  time.Duration
	completed bool
}

// PhaseTimer stops one phase; intended for use with defer.
type PhaseTimer struct {
	timer     *Timer
	phaseName string
}

// Stop stops the phase and returns its duration.
// Only the first call records anything.
func (pt *PhaseTimer) Stop() time.Duration {
	return pt.timer.StopPhase(pt.phaseName)
}

// Timer records named, optionally nested phases of a run.
// Each stopped phase is reported through the logger as "[TIME] name: 12ms".
type Timer struct {
	mu         sync.RWMutex
	name       string
	startTime  time.Time
	phases     map[string]*Phase
	phaseOrder []string
	logger     Logger
	enabled    bool
	clock      Clock
}

// TimerOption configures a Timer instance.
type TimerOption func(*Timer)

// WithLogger reports phases through logger.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) {
		t.logger = logger
	}
}

// WithEnabled toggles the timer; a disabled timer is a no-op.
func WithEnabled(enabled bool) TimerOption {
	return func(t *Timer) {
		t.enabled = enabled
	}
}

// WithClock sets a custom clock.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) {
		t.clock = clock
	}
}

// NewTimer creates a new Timer with the given name and options.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:    name,
		phases:  make(map[string]*Phase),
		enabled: true,
		clock:   NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.startTime = t.clock.Now()
	return t
}

// Start starts timing a root phase.
func (t *Timer) Start(phaseName string) *PhaseTimer {
	return t.StartChild("", phaseName)
}

// StartChild starts timing a phase nested under parentName.
func (t *Timer) StartChild(parentName, phaseName string) *PhaseTimer {
	pt := &PhaseTimer{timer: t, phaseName: phaseName}
	if !t.enabled {
		return pt
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	level := 0
	if parent, ok := t.phases[parentName]; ok {
		level = parent.Level + 1
	}
	if _, exists := t.phases[phaseName]; !exists {
		t.phaseOrder = append(t.phaseOrder, phaseName)
	}
	t.phases[phaseName] = &Phase{
		Name:      phaseName,
		Parent:    parentName,
		Level:     level,
		StartTime: t.clock.Now(),
	}
	return pt
}

// StopPhase stops a phase and returns its duration.
func (t *Timer) StopPhase(phaseName string) time.Duration {
	if !t.enabled {
		return 0
	}

	t.mu.Lock()
	phase, ok := t.phases[phaseName]
	if !ok {
		t.mu.Unlock()
		return 0
	}
	if phase.completed {
		d := phase.Duration
		t.mu.Unlock()
		return d
	}
	phase.Duration = t.clock.Since(phase.StartTime)
	phase.completed = true
	d := phase.Duration
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Info("[TIME] %s: %s", phaseName, FormatDuration(d))
	}
	return d
}

// GetDuration returns the duration of a completed phase.
func (t *Timer) GetDuration(phaseName string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if phase, ok := t.phases[phaseName]; ok {
		return phase.Duration
	}
	return 0
}

// TotalDuration returns the time elapsed since the timer was created.
func (t *Timer) TotalDuration() time.Duration {
	return t.clock.Since(t.startTime)
}

// GetPhases returns copies of all phases in start order.
func (t *Timer) GetPhases() []Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()

	phases := make([]Phase, 0, len(t.phaseOrder))
	for _, name := range t.phaseOrder {
		phases = append(phases, *t.phases[name])
	}
	return phases
}

// Summary renders all phases as an indented block.
func (t *Timer) Summary() string {
	if !t.enabled {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s ===\n", t.name)
	for _, p := range t.GetPhases() {
		fmt.Fprintf(&sb, "%s%s: %s\n", strings.Repeat("  ", p.Level), p.Name, FormatDuration(p.Duration))
	}
	fmt.Fprintf(&sb, "total: %s\n", FormatDuration(t.TotalDuration()))
	return sb.String()
}

// PrintSummary writes the summary through the logger, one line per phase.
func (t *Timer) PrintSummary() {
	if !t.enabled || t.logger == nil {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(t.Summary(), "\n"), "\n") {
		t.logger.Info("%s", line)
	}
}

// ToMap returns phase durations in milliseconds keyed by phase name.
func (t *Timer) ToMap() map[string]int64 {
	out := make(map[string]int64)
	for _, p := range t.GetPhases() {
		out[p.Name] = p.Duration.Milliseconds()
	}
	return out
}

// TimeFuncWithError times fn as a root phase.
func (t *Timer) TimeFuncWithError(phaseName string, fn func() error) (time.Duration, error) {
	pt := t.Start(phaseName)
	err := fn()
	return pt.Stop(), err
}

// NullTimer is a disabled timer.
var NullTimer = NewTimer("null", WithEnabled(false))
