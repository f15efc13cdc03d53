package utils

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTimer(t *testing.T) (*Timer, *MockClock, *bytes.Buffer) {
	t.Helper()
	clock := NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	buf := &bytes.Buffer{}
	logger := NewDefaultLogger(LevelInfo, buf).WithClock(clock)
	return NewTimer("analysis", WithClock(clock), WithLogger(logger)), clock, buf
}

func TestTimer_StartStop(t *testing.T) {
	timer, clock, buf := newTestTimer(t)

	pt := timer.Start("parse")
	clock.Advance(250 * time.Millisecond)
	d := pt.Stop()

	assert.Equal(t, 250*time.Millisecond, d)
	assert.Equal(t, 250*time.Millisecond, timer.GetDuration("parse"))
	assert.Contains(t, buf.String(), "[TIME] parse: 250ms")

	// second stop is a no-op
	clock.Advance(time.Second)
	assert.Equal(t, 250*time.Millisecond, pt.Stop())
}

func TestTimer_NestedPhases(t *testing.T) {
	timer, clock, _ := newTestTimer(t)

	root := timer.Start("analyze")
	child := timer.StartChild("analyze", "trace nodes")
	clock.Advance(2 * time.Second)
	child.Stop()
	root.Stop()

	phases := timer.GetPhases()
	require.Len(t, phases, 2)
	assert.Equal(t, 0, phases[0].Level)
	assert.Equal(t, 1, phases[1].Level)
	assert.Equal(t, "analyze", phases[1].Parent)

	summary := timer.Summary()
	assert.Contains(t, summary, "=== analysis ===")
	assert.Contains(t, summary, "  trace nodes: 2s")
	assert.Equal(t, map[string]int64{"analyze": 2000, "trace nodes": 2000}, timer.ToMap())
}

func TestTimer_StopUnknownPhase(t *testing.T) {
	timer, _, _ := newTestTimer(t)
	assert.Equal(t, time.Duration(0), timer.StopPhase("missing"))
}

func TestTimer_TimeFuncWithError(t *testing.T) {
	timer, clock, _ := newTestTimer(t)
	wantErr := errors.New("boom")

	d, err := timer.TimeFuncWithError("download", func() error {
		clock.Advance(900 * time.Millisecond)
		return wantErr
	})

	assert.Equal(t, 900*time.Millisecond, d)
	assert.ErrorIs(t, err, wantErr)
}

func TestTimer_Disabled(t *testing.T) {
	timer := NewTimer("test", WithEnabled(false))

	pt := timer.Start("phase1")
	assert.Equal(t, time.Duration(0), pt.Stop())
	assert.Empty(t, timer.GetPhases())
	assert.Equal(t, "", timer.Summary())

	assert.Equal(t, time.Duration(0), NullTimer.Start("x").Stop())
}

func TestTimer_PrintSummary(t *testing.T) {
	timer, clock, buf := newTestTimer(t)
	timer.Start("read")
	clock.Advance(10 * time.Millisecond)
	timer.StopPhase("read")
	buf.Reset()

	timer.PrintSummary()

	assert.Contains(t, buf.String(), "=== analysis ===")
	assert.Contains(t, buf.String(), "read: 10ms")
	assert.Contains(t, buf.String(), "total: 10ms")
}
